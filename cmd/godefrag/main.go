package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/dsoprea/go-logging"
	"github.com/dustin/go-humanize"
	"github.com/jessevdk/go-flags"

	defrag "github.com/cluster-sweep/godefrag"
)

type rootParameters struct {
	Path      string   `short:"p" long:"path" description:"Volume path or mount point to defragment" required:"true"`
	Mode      string   `short:"m" long:"mode" description:"analyze, fixup, fastopt (default), forcetogether, moveend, sortname, sortsize, sortaccess, sortchanged, sortcreated" default:"fastopt"`
	Speed     int      `short:"s" long:"speed" description:"Throttle speed, 1-100; 100 disables throttling" default:"100"`
	FreeSpace int      `long:"free-space" description:"Percent of each zone to reserve as free space" default:"0"`
	Exclude   []string `short:"x" long:"exclude" description:"Wildcard pattern to exclude from relocation (repeatable)"`
	SpaceHog  []string `long:"space-hog" description:"Wildcard pattern to treat as a space hog (repeatable); pass DisableDefaults to suppress the built-in list"`
	Verbose   bool     `short:"v" long:"verbose" description:"Print per-move and debug messages to stderr"`
}

var rootArguments = new(rootParameters)

var modesByName = map[string]defrag.Mode{
	"analyze":       defrag.ModeAnalyzeOnly,
	"fixup":         defrag.ModeAnalyzeFixup,
	"fastopt":       defrag.ModeAnalyzeFixupFastopt,
	"forcetogether": defrag.ModeForceTogether,
	"moveend":       defrag.ModeMoveToEnd,
	"sortname":      defrag.ModeSortByName,
	"sortsize":      defrag.ModeSortBySize,
	"sortaccess":    defrag.ModeSortByAccessTime,
	"sortchanged":   defrag.ModeSortByChangedTime,
	"sortcreated":   defrag.ModeSortByCreatedTime,
}

func main() {
	defer func() {
		if state := recover(); state != nil {
			if asErr, ok := state.(error); ok {
				log.PrintError(asErr)
			} else {
				fmt.Fprintf(os.Stderr, "panic: %v\n", state)
			}
			os.Exit(-1)
		}
	}()

	p := flags.NewParser(rootArguments, flags.Default)

	_, err := p.Parse()
	if err != nil {
		os.Exit(1)
	}

	mode, ok := modesByName[rootArguments.Mode]
	if !ok {
		fmt.Fprintf(os.Stderr, "unrecognized mode: %s\n", rootArguments.Mode)
		os.Exit(1)
	}

	volume, err := openVolume(rootArguments.Path)
	log.PanicIf(err)

	running := defrag.NewRunningState()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	go func() {
		<-interrupt
		fmt.Fprintln(os.Stderr, "stopping...")
		defrag.Stop(running, 0)
	}()

	opts := defrag.RunOptions{
		Path:      rootArguments.Path,
		Mode:      mode,
		Speed:     rootArguments.Speed,
		FreeSpace: rootArguments.FreeSpace,
		Excludes:  rootArguments.Exclude,
		SpaceHogs: rootArguments.SpaceHog,
		Running:   running,
		Progress:  &consoleProgress{verbose: rootArguments.Verbose},
		Volume:    volume,
	}

	err = defrag.RunDefrag(opts)
	log.PanicIf(err)
}

// consoleProgress reports a running defrag pass to stderr, formatting byte
// and cluster counts with go-humanize the way a long-running CLI tool
// should rather than printing raw integers.
type consoleProgress struct {
	verbose bool
}

func (c *consoleProgress) StatusChange(volume string, phase defrag.Phase, zone defrag.Zone, stats defrag.Statistics) {
	fmt.Fprintf(os.Stderr, "%s: phase=%d files=%s dirs=%d fragmented=%s/%s\n",
		volume, phase,
		humanize.Comma(int64(stats.CountAllFiles)),
		stats.CountDirectories,
		humanize.Comma(int64(stats.CountFragmentedItems)),
		humanize.Comma(int64(stats.CountAllFiles+stats.CountDirectories)),
	)
}

func (c *consoleProgress) PerMove(item *defrag.Item, clusters defrag.ClusterCount, sourceLCN, destinationLCN defrag.LCN, sourceVCN defrag.VCN) {
	if !c.verbose {
		return
	}
	fmt.Fprintf(os.Stderr, "  moved %s (%s clusters) -> %d\n", item.DisplayPath(), humanize.Comma(int64(clusters)), destinationLCN)
}

func (c *consoleProgress) PerAnalyzedItem(stats defrag.Statistics, item *defrag.Item) {}

func (c *consoleProgress) DebugMessage(level defrag.DebugLevel, message string) {
	if !c.verbose && level > defrag.DebugWarning {
		return
	}
	fmt.Fprintf(os.Stderr, "[%d] %s\n", level, message)
}

func (c *consoleProgress) DrawCluster(start, end defrag.LCN, color defrag.DrawColor) {}

// openVolume is intentionally unimplemented: issuing raw ReadSectors/
// MoveFile/GetFileExtents calls against a live NTFS or FAT volume requires
// per-OS device APIs (Windows FSCTL_MOVE_FILE, DeviceIoControl bitmap
// queries, or the Linux ioctl/FIBMAP equivalents), which are outside
// godefrag's scope: it implements the analysis and relocation algorithms
// against the VolumeAccessor interface, not a specific OS's device layer.
func openVolume(path string) (defrag.VolumeAccessor, error) {
	return nil, log.Errorf("no VolumeAccessor implementation is wired up for this platform; supply one via defrag.RunOptions.Volume")
}
