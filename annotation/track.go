package annotation

// TrackGroup links a 3D box with its projected 2D rectangles across camera
// views. The shared track id is the linkage; view index keys the rectangles.
type TrackGroup struct {
	ID    string
	Box3D *Object
	Rects map[int]*Object
}

// GroupByTrack buckets a frame's objects by track id, preserving first-seen
// order. Objects without a track id and tool types other than 3D_BOX/2D_RECT
// are ignored.
func GroupByTrack(objects []Object) []*TrackGroup {
	byID := map[string]*TrackGroup{}
	var ordered []*TrackGroup
	for i := range objects {
		obj := &objects[i]
		if obj.TrackID == "" {
			continue
		}
		if obj.Type != Tool3DBox && obj.Type != Tool2DRect {
			continue
		}
		group, ok := byID[obj.TrackID]
		if !ok {
			group = &TrackGroup{ID: obj.TrackID, Rects: map[int]*Object{}}
			byID[obj.TrackID] = group
			ordered = append(ordered, group)
		}
		if obj.Type == Tool3DBox {
			group.Box3D = obj
		} else {
			group.Rects[obj.Contour.ViewIndex] = obj
		}
	}
	return ordered
}

// Complete fills every camera view 0..numViews-1 that lacks an observed
// rectangle with a zero-size placeholder sharing the group's identity, so
// per-view output files stay index-complete. Groups without a 3D box are
// left alone.
func (g *TrackGroup) Complete(numViews int) {
	if g.Box3D == nil {
		return
	}
	for v := 0; v < numViews; v++ {
		if _, ok := g.Rects[v]; ok {
			continue
		}
		g.Rects[v] = &Object{
			Type:      Tool2DRect,
			TrackID:   g.ID,
			TrackName: g.Box3D.TrackName,
			ClassName: g.Box3D.ClassName,
			Contour: Contour{
				Points:    []Point{{0, 0}, {0, 0}},
				ViewIndex: v,
			},
		}
	}
}
