package defrag

// Mode selects the phase chain a RunDefrag pass executes.
//
// ground: original_source/jkdefrag_evo/include/constants.h (OptimizeMode)
type Mode int

const (
	ModeAnalyzeOnly Mode = iota
	ModeAnalyzeFixup
	ModeAnalyzeFixupFastopt // default
	ModeForceTogether
	ModeMoveToEnd
	ModeSortByName
	ModeSortBySize
	ModeSortByAccessTime
	ModeSortByChangedTime
	ModeSortByCreatedTime
)

// Phase identifies one step of a phase chain, reported via StatusChange.
//
// ground: original_source/.../constants.h (DefragPhase)
type Phase int

const (
	PhaseAnalyze Phase = iota
	PhaseDefragment
	PhaseForcedFill
	PhaseZoneSort
	PhaseZoneFastopt
	PhaseMoveUp
	PhaseFixup
	PhaseDone
)

// Statistics carries the running/final counters of a volume pass.
//
// ground: original_source/.../defrag_data_struct.h (DefragDataStruct)
type Statistics struct {
	CountDirectories        uint64
	CountAllFiles           uint64
	CountFragmentedItems    uint64
	CountAllBytes           uint64
	CountFragmentedBytes    uint64
	CountAllClusters        ClusterCount
	CountFragmentedClusters ClusterCount
	CountFreeClusters       ClusterCount
	CountGaps               uint64
	BiggestGap              ClusterCount
	PhaseTodo               ClusterCount
	PhaseDone               ClusterCount
}

// ProgressCollaborator is the external, display-side collaborator
// godefrag's worker reports to. Implementations must not block for long
// and should avoid allocating in the steady-state per-move/per-item calls.
//
// ground: spec.md §6 "Progress callbacks"
type ProgressCollaborator interface {
	StatusChange(volume string, phase Phase, zone Zone, stats Statistics)
	PerMove(item *Item, clusters ClusterCount, sourceLCN, destinationLCN LCN, sourceVCN VCN)
	PerAnalyzedItem(stats Statistics, item *Item)
	DebugMessage(level DebugLevel, message string)
	DrawCluster(start, end LCN, color DrawColor)
}

// NullProgress discards every callback; it is useful for tests and as the
// zero value of RunOptions.Progress.
type NullProgress struct{}

func (NullProgress) StatusChange(string, Phase, Zone, Statistics)                    {}
func (NullProgress) PerMove(*Item, ClusterCount, LCN, LCN, VCN)                       {}
func (NullProgress) PerAnalyzedItem(Statistics, *Item)                                {}
func (NullProgress) DebugMessage(DebugLevel, string)                                 {}
func (NullProgress) DrawCluster(LCN, LCN, DrawColor)                                  {}
