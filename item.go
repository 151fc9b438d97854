package defrag

// Item describes one file or directory found during a volume scan. The long
// name is always populated; the scanners leave LongPath and ShortPath
// unset, and FullPath builds a path from the ParentDirectory chain instead.
// A short (8.3) form is nil whenever it is identical to the long form, so
// callers never store the same string twice.
//
// ground: original_source/jkdefrag_evo/include/file_node.h (FileNode)
type Item struct {
	LongFilename  string
	ShortFilename *string
	LongPath      string
	ShortPath     *string

	Bytes    uint64
	Clusters ClusterCount

	CreationTime   FileTime
	LastAccessTime FileTime
	MFTChangeTime  FileTime

	ParentDirectory *Item
	ParentInode     uint64

	IsDirectory bool
	IsUnmovable bool
	IsExcluded  bool
	IsSpaceHog  bool

	Fragments FragmentList

	parent, smaller, bigger *Item
}

// SetShortFilename records the 8.3 short name, aliasing it to the long name
// (storing nil) when the two are identical.
func (it *Item) SetShortFilename(name string) {
	if name == it.LongFilename {
		it.ShortFilename = nil
		return
	}
	it.ShortFilename = &name
}

// SetShortPath is the path analogue of SetShortFilename.
func (it *Item) SetShortPath(path string) {
	if path == it.LongPath {
		it.ShortPath = nil
		return
	}
	it.ShortPath = &path
}

// DisplayName returns the short name if one was recorded, else the long
// name.
func (it *Item) DisplayName() string {
	if it.ShortFilename != nil {
		return *it.ShortFilename
	}
	return it.LongFilename
}

// DisplayPath is the path analogue of DisplayName.
func (it *Item) DisplayPath() string {
	if it.ShortPath != nil {
		return *it.ShortPath
	}
	return it.LongPath
}

// FullPath walks the ParentDirectory chain to build a "\"-separated path,
// used for exclude/space-hog wildcard matching once a scan has resolved
// every item's parent back-link. A cap defends against
// an accidental parent cycle in corrupt metadata.
func (it *Item) FullPath() string {
	const maxDepth = 1024

	parts := []string{it.DisplayName()}
	cur := it.ParentDirectory
	for depth := 0; cur != nil && depth < maxDepth; depth++ {
		parts = append(parts, cur.DisplayName())
		cur = cur.ParentDirectory
	}

	path := parts[len(parts)-1]
	for i := len(parts) - 2; i >= 0; i-- {
		path += "\\" + parts[i]
	}
	return path
}

// ItemLCN returns the LCN of the item's first real fragment, skipping any
// leading virtual fragments, or 0 if the item has no real fragments.
//
// ground: FileNode::get_item_lcn in file_node.h
func (it *Item) ItemLCN() LCN {
	lcn, ok := it.Fragments.FirstLCN()
	if !ok {
		return 0
	}
	return lcn
}

// PreferredZone returns the zone this item should be relocated towards.
//
// ground: FileNode::get_preferred_zone in file_node.h
func (it *Item) PreferredZone() Zone {
	switch {
	case it.IsDirectory:
		return ZoneDirectories
	case it.IsSpaceHog:
		return ZoneSpaceHogs
	default:
		return ZoneFiles
	}
}

// IsFragmented reports whether the item occupies more than one real
// fragment.
func (it *Item) IsFragmented() bool {
	return it.Fragments.FragmentCount() > 1
}
