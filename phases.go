package defrag

import (
	"sort"
	"time"

	"github.com/dsoprea/go-logging"
)

// defaultSpaceHogPatterns mirrors the original tool's built-in space-hog
// wildcard list: files that are large, disposable, or produced by
// indexing/compilation and so not worth the cost of keeping unfragmented.
//
// ground: original_source/jkdefrag_evo/include/constants.h
// (DefaultSpaceHogPatterns)
var defaultSpaceHogPatterns = []string{
	"*.bak",
	"*.tmp",
	"~*.*",
	"*.mp3",
	"*.avi",
	"*.mkv",
}

// session carries everything one RunDefrag pass accumulates between
// phases: the scan result, the current zone table, and the collaborators
// every phase shares.
//
// ground: spec.md §4.7, phase chains all operate over one shared scan
type session struct {
	opts RunOptions

	index       *ItemIndex
	kind        FilesystemKind
	mftExcludes []Extent

	totalClusters   LCN
	bytesPerCluster uint32

	zones      ZoneTable
	gapFinder  *GapFinder
	moveEngine *MoveEngine

	stats Statistics
}

// newSession scans the volume, classifies every item against the exclude
// and space-hog patterns, and computes the initial zone table.
func newSession(opts RunOptions) (*session, error) {
	scanResult, err := Scan(opts.Volume, ScanOptions{Running: opts.Running})
	if err != nil {
		return nil, log.Wrap(err)
	}

	total := opts.Volume.TotalClusters()

	var bytesPerCluster uint32
	if scanResult.Kind == FilesystemNTFS {
		vd, err := opts.Volume.NTFSVolumeData()
		if err == nil {
			bytesPerCluster = vd.BytesPerCluster
		}
	}

	classifyItems(scanResult.Index, opts.Excludes, opts.SpaceHogs)

	freeSpaceFraction := float64(opts.FreeSpace) / 100
	zt := CalculateZones(scanResult.Index, scanResult.MFTExcludes, total, freeSpaceFraction)

	gf := NewGapFinder(opts.Volume, scanResult.MFTExcludes)

	me := &MoveEngine{
		Volume:              opts.Volume,
		Throttle:            NewThrottle(opts.Speed),
		Index:               scanResult.Index,
		GapFinder:           gf,
		Zones:               &zt,
		MFTExcludes:         scanResult.MFTExcludes,
		TotalClusters:       total,
		BytesPerCluster:     bytesPerCluster,
		FreeSpaceFraction:   freeSpaceFraction,
		DirFailureThreshold: opts.DirFailureThreshold,
	}

	s := &session{
		opts:            opts,
		index:           scanResult.Index,
		kind:            scanResult.Kind,
		mftExcludes:     scanResult.MFTExcludes,
		totalClusters:   total,
		bytesPerCluster: bytesPerCluster,
		zones:           zt,
		gapFinder:       gf,
		moveEngine:      me,
	}
	s.computeStatistics()

	return s, nil
}

func (s *session) stopping() bool {
	return s.opts.Running != nil && s.opts.Running.Load() == StateStopping
}

// classifyItems sets IsExcluded and IsSpaceHog on every item in index by
// matching its full path against opts.Excludes and the space-hog pattern
// list (built-ins plus opts.SpaceHogs, unless opts.SpaceHogs contains the
// DisableDefaults token).
func classifyItems(index *ItemIndex, excludes, spaceHogs []string) {
	patterns := spaceHogPatternList(spaceHogs)

	for item := index.Smallest(nil); item != nil; item = index.Next(item) {
		path := item.FullPath()
		if len(excludes) > 0 {
			item.IsExcluded = MatchAny(path, excludes)
		}
		if !item.IsDirectory && len(patterns) > 0 {
			item.IsSpaceHog = MatchAny(path, patterns)
		}
	}
}

func spaceHogPatternList(configured []string) []string {
	useDefaults := true
	var extra []string
	for _, p := range configured {
		if p == disableDefaultsToken {
			useDefaults = false
			continue
		}
		extra = append(extra, p)
	}

	if !useDefaults {
		return extra
	}
	return append(append([]string{}, defaultSpaceHogPatterns...), extra...)
}

// computeStatistics walks the index and tallies the counters RunDefrag
// reports via StatusChange/PerAnalyzedItem.
func (s *session) computeStatistics() {
	var stats Statistics

	for item := s.index.Smallest(nil); item != nil; item = s.index.Next(item) {
		if item.IsDirectory {
			stats.CountDirectories++
		} else {
			stats.CountAllFiles++
			stats.CountAllBytes += item.Bytes
		}
		stats.CountAllClusters += item.Clusters

		if item.IsFragmented() {
			stats.CountFragmentedItems++
			stats.CountFragmentedBytes += item.Bytes
			stats.CountFragmentedClusters += item.Clusters
		}

		s.opts.Progress.PerAnalyzedItem(stats, item)
	}

	s.stats = stats
}

// phasesForMode returns the ordered phase names RunDefrag executes for
// mode.
//
// ground: spec.md §4.7 "Mode to phase-chain table"
func phasesForMode(mode Mode) []string {
	switch mode {
	case ModeAnalyzeOnly:
		return []string{"analyze"}
	case ModeAnalyzeFixup:
		return []string{"analyze", "fixup"}
	case ModeForceTogether:
		return []string{"analyze", "forcedfill"}
	case ModeMoveToEnd:
		return []string{"analyze", "moveup"}
	case ModeSortByName, ModeSortBySize, ModeSortByAccessTime, ModeSortByChangedTime, ModeSortByCreatedTime:
		return []string{"analyze", "sort"}
	default: // ModeAnalyzeFixupFastopt, the default mode
		return []string{"analyze", "defragment", "fixup", "optimize", "fixup"}
	}
}

// runPhase dispatches one named phase.
func (s *session) runPhase(name string) error {
	switch name {
	case "analyze":
		return s.runAnalyze()
	case "defragment":
		return s.runDefragment()
	case "fixup":
		return s.runFixup()
	case "optimize":
		return s.runOptimize()
	case "forcedfill":
		return s.runForcedFill()
	case "moveup":
		return s.runMoveUp()
	case "sort":
		return s.runSort()
	default:
		return log.Errorf("unknown phase: %s", name)
	}
}

func (s *session) runAnalyze() error {
	s.computeStatistics()
	s.opts.Progress.StatusChange(s.opts.Path, PhaseAnalyze, ZoneDirectories, s.stats)
	return nil
}

// runDefragment moves every fragmented, movable item into a single gap
// within its preferred zone. When no in-zone gap fits the whole file, it
// falls back to the largest gap anywhere on the volume; if even that gap
// is too small, it fills the item in over the item's existing fragments
// rather than skip it, and aborts the whole phase only once no gap at all
// remains on the volume.
//
// ground: spec.md §4.7 "Defragment phase"
func (s *session) runDefragment() error {
	s.opts.Progress.StatusChange(s.opts.Path, PhaseDefragment, ZoneFiles, s.stats)

	for item := s.index.Smallest(nil); item != nil; {
		if s.stopping() {
			return nil
		}
		next := s.index.Next(item)

		if item.IsUnmovable || item.IsExcluded || !item.IsFragmented() {
			item = next
			continue
		}

		size := item.Fragments.RealClusterCount()
		bounds := s.zones.Bounds(item.PreferredZone())

		if gap, err := s.gapFinder.FindGap(bounds.Begin, bounds.End, size, false, true, false); err == nil {
			if mErr := s.moveEngine.MoveWithFallback(item, gap.Begin, DirectionUp); mErr == nil {
				s.opts.Progress.PerMove(item, item.Clusters, gap.Begin, gap.Begin, 0)
				item = next
				continue
			}
		}

		largest, err := s.gapFinder.FindGap(0, s.totalClusters, 1, false, false, false)
		if err != nil {
			// No free cluster anywhere on the volume: further items can
			// fare no better, so stop the phase here rather than spin
			// through the rest of the index failing the same way.
			return nil
		}

		if largest.Length() >= size {
			if mErr := s.moveEngine.MoveWithFallback(item, largest.Begin, DirectionUp); mErr == nil {
				s.opts.Progress.PerMove(item, item.Clusters, largest.Begin, largest.Begin, 0)
			}
		} else if mErr := s.defragmentPartialFill(item); mErr == nil {
			s.opts.Progress.PerMove(item, item.Clusters, item.ItemLCN(), item.ItemLCN(), 0)
		}

		item = next
	}

	return nil
}

// defragmentPartialFill is Defragment's last resort when not even the
// largest gap on the volume holds the whole item: it relocates the item's
// existing fragments one at a time, each into the biggest gap that can
// hold that whole fragment, scanning upward from the last destination
// used. It never relocates less than one whole source fragment into a
// destination, since a partial fragment move would only add fragments
// rather than remove them.
//
// ground: spec.md §4.7 "Defragment phase" partial-move fallback
func (s *session) defragmentPartialFill(item *Item) error {
	handle, err := s.moveEngine.Volume.OpenItem(item)
	if err != nil {
		return log.Wrap(err)
	}
	defer s.moveEngine.Volume.CloseHandle(handle)

	var prevVCN VCN
	searchFrom := LCN(0)
	moved := false

	for _, f := range item.Fragments {
		srcVCN := prevVCN
		length := ClusterCount(f.NextVCN - prevVCN)
		prevVCN = f.NextVCN
		if f.IsVirtual() || length == 0 {
			continue
		}

		// No gap can reach a minimum larger than the volume, so with
		// mustFit=false FindGap returns the largest gap in the window.
		gap, err := s.gapFinder.FindGap(searchFrom, s.totalClusters, ClusterCount(s.totalClusters)+1, false, false, false)
		if err != nil || gap.Length() < length {
			break // no gap anywhere still fits even one more source fragment
		}

		if mErr := s.moveEngine.MovePartial(handle, srcVCN, gap.Begin, length); mErr != nil {
			break
		}
		searchFrom = gap.Begin + LCN(length)
		moved = true
	}

	if rErr := s.moveEngine.Reconcile(item, handle); rErr != nil {
		return log.Wrap(rErr)
	}
	if !moved {
		return log.Wrap(ErrMoveFailed)
	}
	return nil
}

// runFixup relocates movable items that have drifted outside their
// preferred zone, skipping items modified more recently than
// RecentlyModifiedThreshold (they are likely still being written to).
//
// ground: spec.md §4.7 "Fixup phase"
func (s *session) runFixup() error {
	s.opts.Progress.StatusChange(s.opts.Path, PhaseFixup, ZoneFiles, s.stats)

	cutoff := time.Now().Add(-s.opts.RecentlyModifiedThreshold).Unix()

	for item := s.index.Smallest(nil); item != nil; {
		if s.stopping() {
			return nil
		}
		next := s.index.Next(item)

		if item.IsUnmovable || item.IsExcluded {
			item = next
			continue
		}
		if item.MFTChangeTime.Unix() > cutoff {
			item = next
			continue
		}

		bounds := s.zones.Bounds(item.PreferredZone())
		if bounds.Contains(item.ItemLCN()) {
			item = next
			continue
		}

		gap, err := s.gapFinder.FindGap(bounds.Begin, bounds.End, item.Fragments.RealClusterCount(), false, true, false)
		if err == nil {
			if mErr := s.moveEngine.MoveWithFallback(item, gap.Begin, DirectionUp); mErr == nil {
				s.opts.Progress.PerMove(item, item.Clusters, gap.Begin, gap.Begin, 0)
			}
		}

		item = next
	}

	return nil
}

// runOptimize recomputes zone boundaries and re-packs each zone, iterating
// real free gaps from the Gap Finder rather than an arithmetically
// advanced cursor — so an unmovable or excluded item's actual on-disk
// footprint is never collided with. For each gap in turn it picks the
// largest movable item in the zone that still fits (find-highest-item),
// packs the gap with it, and moves on to the next gap.
//
// ground: spec.md §4.7 "Optimize-volume phase" (find-highest-item fallback
// path; the 500ms-bounded subset-sum find-best-item search is an Open
// Question resolved in favor of find-highest-item alone, see DESIGN.md)
func (s *session) runOptimize() error {
	s.opts.Progress.StatusChange(s.opts.Path, PhaseZoneFastopt, ZoneFiles, s.stats)

	s.zones = CalculateZones(s.index, s.mftExcludes, s.totalClusters, s.moveEngine.FreeSpaceFraction)
	*s.moveEngine.Zones = s.zones

	for z := Zone(0); z < zoneCount; z++ {
		bounds := s.zones.Bounds(z)
		cursor := bounds.Begin

		for {
			if s.stopping() {
				return nil
			}

			gap, err := s.gapFinder.FindGap(cursor, bounds.End, 1, false, true, false)
			if err != nil {
				break
			}

			item := s.findHighestFittingItem(z, gap.Length())
			if item == nil {
				break
			}

			if err := s.moveEngine.MoveWithFallback(item, gap.Begin, DirectionUp); err != nil {
				break
			}
			s.opts.Progress.PerMove(item, item.Clusters, gap.Begin, gap.Begin, 0)
			cursor = gap.Begin + LCN(item.Fragments.RealClusterCount())
		}
	}

	return nil
}

// findHighestFittingItem returns the largest movable, non-excluded item
// in zone whose real cluster count is at most maxSize, or nil if none
// fits — Optimize-volume's find-highest-item search.
func (s *session) findHighestFittingItem(zone Zone, maxSize ClusterCount) *Item {
	var best *Item
	for item := s.index.Biggest(nil); item != nil; item = s.index.Prev(item) {
		if item.IsUnmovable || item.IsExcluded || item.PreferredZone() != zone {
			continue
		}
		size := item.Fragments.RealClusterCount()
		if size == 0 || size > maxSize {
			continue
		}
		if best == nil || size > best.Fragments.RealClusterCount() {
			best = item
		}
	}
	return best
}

// runForcedFill packs every movable item back-to-back from the start of
// the volume, without regard to zones — the ForceTogether mode's
// "squeeze everything to one contiguous block" behavior. Like Optimize-
// volume, it is gap-driven: each gap (lowest LCN first) is filled from the
// opposite end of the item list, the highest-LCN movable item still above
// that gap, so an unmovable item's real footprint is never assumed free.
//
// ground: spec.md §4.7 "Forced-fill phase"
func (s *session) runForcedFill() error {
	s.opts.Progress.StatusChange(s.opts.Path, PhaseForcedFill, ZoneDirectories, s.stats)

	cursor := LCN(0)
	for {
		if s.stopping() {
			return nil
		}

		gap, err := s.gapFinder.FindGap(cursor, s.totalClusters, 1, false, true, false)
		if err != nil {
			break
		}

		item := s.highestMovableItemAbove(gap.Begin)
		if item == nil {
			break
		}

		size := item.Fragments.RealClusterCount()
		if size > gap.Length() {
			placed, _ := s.movePartialAligned(item, gap.Begin, s.totalClusters, size, 1)
			if placed == 0 {
				break
			}
			s.opts.Progress.PerMove(item, item.Clusters, item.ItemLCN(), gap.Begin, 0)
			cursor = gap.Begin + LCN(placed)
			continue
		}

		if err := s.moveEngine.MoveWithFallback(item, gap.Begin, DirectionUp); err != nil {
			break
		}
		s.opts.Progress.PerMove(item, item.Clusters, gap.Begin, gap.Begin, 0)
		cursor = gap.Begin + LCN(size)
	}

	return nil
}

// highestMovableItemAbove returns the movable, non-excluded item with the
// highest current LCN, provided that LCN is above lcn; nil if no movable
// item remains above lcn.
func (s *session) highestMovableItemAbove(lcn LCN) *Item {
	for item := s.index.Biggest(nil); item != nil; item = s.index.Prev(item) {
		if item.IsUnmovable || item.IsExcluded || item.Fragments.RealClusterCount() == 0 {
			continue
		}
		if item.ItemLCN() <= lcn {
			return nil
		}
		return item
	}
	return nil
}

// runMoveUp relocates every movable item as close to the end of the
// volume as possible — the MoveToEnd mode's "clear the front of the disk"
// behavior. It is gap-driven like runForcedFill, just mirrored: the
// highest gap is filled first, from the lowest-LCN movable item still
// below that gap, so unmovable items' real footprints are respected.
//
// ground: spec.md §4.7 "Move-up phase"
func (s *session) runMoveUp() error {
	s.opts.Progress.StatusChange(s.opts.Path, PhaseMoveUp, ZoneSpaceHogs, s.stats)

	searchEnd := s.totalClusters
	for {
		if s.stopping() {
			return nil
		}

		gap, err := s.gapFinder.FindGap(0, searchEnd, 1, true, true, false)
		if err != nil {
			break
		}

		item := s.lowestMovableItemBelow(gap.End)
		if item == nil {
			break
		}

		size := item.Fragments.RealClusterCount()
		destination := gap.End - LCN(size)
		if destination < gap.Begin {
			destination = gap.Begin
		}

		if size > gap.Length() {
			placed, _ := s.movePartialAligned(item, destination, gap.End, size, 1)
			if placed == 0 {
				break
			}
			s.opts.Progress.PerMove(item, item.Clusters, item.ItemLCN(), destination, 0)
			searchEnd = destination
			continue
		}

		if err := s.moveEngine.MoveWithFallback(item, destination, DirectionDown); err != nil {
			break
		}
		s.opts.Progress.PerMove(item, item.Clusters, destination, destination, 0)
		searchEnd = gap.Begin
	}

	return nil
}

// lowestMovableItemBelow returns the movable, non-excluded item with the
// lowest current LCN, provided that LCN is below lcn; nil if no movable
// item remains below lcn.
func (s *session) lowestMovableItemBelow(lcn LCN) *Item {
	for item := s.index.Smallest(nil); item != nil; item = s.index.Next(item) {
		if item.IsUnmovable || item.IsExcluded || item.Fragments.RealClusterCount() == 0 {
			continue
		}
		if item.ItemLCN() >= lcn {
			return nil
		}
		return item
	}
	return nil
}

// sortAlignment is the cluster multiple Optimize-sort aligns both whole
// and partial placements to, trading a little packing tightness for less
// churn across repeated sort passes.
//
// ground: spec.md §4.7 "Optimize-sort phase"
const sortAlignment ClusterCount = 8

// runSort orders every movable item within its preferred zone by the key
// named in opts.Mode and places each one in turn at the zone's running
// cursor, 8-cluster-aligned. Before a whole-file move it vacates clusters
// ahead of the target (moving whatever currently sits there further up,
// see vacate) so the destination span is genuinely free; when the item is
// larger than the gap actually available there, it falls back to a
// sequence of 8-cluster-aligned partial moves across successive gaps,
// skipping any residual smaller than sortAlignment.
//
// ground: spec.md §4.7 "Optimize-sort phase"
func (s *session) runSort() error {
	s.opts.Progress.StatusChange(s.opts.Path, PhaseZoneSort, ZoneFiles, s.stats)

	key := sortKeyForMode(s.opts.Mode)

	for z := Zone(0); z < zoneCount; z++ {
		bounds := s.zones.Bounds(z)

		var items []*Item
		for item := s.index.Smallest(nil); item != nil; item = s.index.Next(item) {
			if item.IsUnmovable || item.IsExcluded || item.PreferredZone() != z {
				continue
			}
			items = append(items, item)
		}

		sort.SliceStable(items, func(i, j int) bool { return key(items[i], items[j]) })

		cursor := alignToMultiple(bounds.Begin, sortAlignment)
		for _, item := range items {
			if s.stopping() {
				return nil
			}
			cursor = alignToMultiple(s.placeSorted(item, cursor, bounds.End), sortAlignment)
		}
	}

	return nil
}

// placeSorted relocates item to destination cursor (or leaves it if
// already there), vacating ahead of the target first, and returns the
// next zone cursor position.
func (s *session) placeSorted(item *Item, cursor, zoneEnd LCN) LCN {
	size := item.Fragments.RealClusterCount()
	if size == 0 {
		return cursor
	}
	if item.ItemLCN() == cursor {
		return cursor + LCN(size)
	}

	if vErr := s.vacate(cursor, size, zoneEnd); vErr == nil {
		if mErr := s.moveEngine.MoveWithFallback(item, cursor, DirectionUp); mErr == nil {
			s.opts.Progress.PerMove(item, item.Clusters, item.ItemLCN(), cursor, 0)
			return cursor + LCN(size)
		}
	}

	// Vacating the whole span failed (e.g. an unmovable item blocks full
	// clearance) or the whole-file move itself failed: fall back to
	// placing the file across whatever 8-cluster-aligned gaps are
	// actually available from cursor onward.
	placed, _ := s.movePartialAligned(item, cursor, zoneEnd, size, sortAlignment)
	if placed > 0 {
		s.opts.Progress.PerMove(item, item.Clusters, item.ItemLCN(), cursor, 0)
	}
	return cursor + LCN(size)
}

// vacate implements spec.md's Vacate algorithm: given [lcn, lcn+clusters),
// it progressively relocates whatever files currently sit inside or
// crossing that range upward until the range is a contiguous free gap of
// at least clusters. Each evicted file's destination is the first gap
// above a high-water mark, initially the zone's end; if none exists above
// the mark, it falls back to the highest gap above the evicted file's own
// position. Every eviction moves the high-water mark to the file's
// landing LCN, which is never below the range's end, so a later eviction
// can never land back inside the range being vacated and livelock the
// pass.
//
// ground: spec.md §4.7 "Vacate"
func (s *session) vacate(lcn LCN, clusters ClusterCount, zoneEnd LCN) error {
	target := Extent{Begin: lcn, End: lcn + LCN(clusters)}
	highWaterMark := zoneEnd
	if highWaterMark < target.End {
		highWaterMark = target.End
	}

	for {
		if s.stopping() {
			return nil
		}

		victim := s.firstItemCrossing(target)
		if victim == nil {
			return nil
		}
		if victim.IsUnmovable || victim.IsExcluded {
			return log.Wrap(ErrMoveFailed)
		}

		size := victim.Fragments.RealClusterCount()

		dest, err := s.gapFinder.FindGap(highWaterMark, s.totalClusters, size, false, true, false)
		if err != nil {
			fallbackFrom := victim.ItemLCN()
			if fallbackFrom < target.End {
				fallbackFrom = target.End
			}
			dest, err = s.gapFinder.FindGap(fallbackFrom, s.totalClusters, size, true, true, false)
			if err != nil {
				return log.Wrap(err)
			}
		}

		if mErr := s.moveEngine.MoveWithFallback(victim, dest.Begin, DirectionUp); mErr != nil {
			return log.Wrap(mErr)
		}
		s.opts.Progress.PerMove(victim, victim.Clusters, victim.ItemLCN(), dest.Begin, 0)

		highWaterMark = dest.Begin
	}
}

// firstItemCrossing returns the item (in index order) with a fragment
// overlapping target, or nil if none remain.
func (s *session) firstItemCrossing(target Extent) *Item {
	for item := s.index.Smallest(nil); item != nil; item = s.index.Next(item) {
		for _, e := range item.Fragments.Extents() {
			if e.Overlaps(target) {
				return item
			}
		}
	}
	return nil
}

// movePartialAligned places up to size clusters of item's stream across
// successive free gaps found from searchFrom onward (bounded by
// searchEnd), each chunk rounded down to a multiple of alignment and never
// emitted if that rounds to zero — the residual-skip rule shared by
// Optimize-sort's partial placement and the Forced-fill/Move-up gap-driven
// fallbacks. Returns the number of clusters actually placed.
func (s *session) movePartialAligned(item *Item, searchFrom, searchEnd LCN, size, alignment ClusterCount) (ClusterCount, error) {
	handle, err := s.moveEngine.Volume.OpenItem(item)
	if err != nil {
		return 0, log.Wrap(err)
	}
	defer s.moveEngine.Volume.CloseHandle(handle)

	if alignment == 0 {
		alignment = 1
	}

	remaining := size
	srcVCN := VCN(0)
	searchLCN := searchFrom
	var placed ClusterCount

	for remaining > 0 {
		if s.stopping() {
			break
		}

		gap, err := s.gapFinder.FindGap(searchLCN, searchEnd, alignment, false, false, false)
		if err != nil {
			break
		}

		chunk := gap.Length()
		if chunk > remaining {
			chunk = remaining
		}
		chunk = chunk / alignment * alignment
		if chunk == 0 {
			searchLCN = gap.End
			continue
		}

		if mErr := s.moveEngine.MovePartial(handle, srcVCN, gap.Begin, chunk); mErr != nil {
			break
		}

		srcVCN += VCN(chunk)
		remaining -= chunk
		placed += chunk
		searchLCN = gap.Begin + LCN(chunk)
	}

	if rErr := s.moveEngine.Reconcile(item, handle); rErr != nil {
		return placed, log.Wrap(rErr)
	}
	return placed, nil
}

func alignToMultiple(lcn LCN, n ClusterCount) LCN {
	m := LCN(n)
	return (lcn + m - 1) / m * m
}

func sortKeyForMode(mode Mode) func(a, b *Item) bool {
	switch mode {
	case ModeSortBySize:
		return func(a, b *Item) bool { return a.Bytes < b.Bytes }
	case ModeSortByAccessTime:
		return func(a, b *Item) bool { return a.LastAccessTime < b.LastAccessTime }
	case ModeSortByChangedTime:
		return func(a, b *Item) bool { return a.MFTChangeTime < b.MFTChangeTime }
	case ModeSortByCreatedTime:
		return func(a, b *Item) bool { return a.CreationTime < b.CreationTime }
	default: // ModeSortByName
		return func(a, b *Item) bool { return a.DisplayName() < b.DisplayName() }
	}
}

// reportFinal emits the closing StatusChange once the phase chain has
// finished or been stopped.
func (s *session) reportFinal() {
	s.computeStatistics()
	s.opts.Progress.StatusChange(s.opts.Path, PhaseDone, ZoneFiles, s.stats)
}
