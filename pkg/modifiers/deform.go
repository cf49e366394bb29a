package modifiers

import (
	"github.com/chazu/dmesh/pkg/derived"
	"github.com/chazu/dmesh/pkg/geom"
	"github.com/chazu/dmesh/pkg/mesh"
	"github.com/chazu/dmesh/pkg/modifier"
)

// TranslateSettings moves every vertex by Offset.
type TranslateSettings struct {
	Offset geom.Vec3 `toml:"offset"`
}

func translateInfo() *modifier.TypeInfo {
	deform := func(md *modifier.Modifier, _ *modifier.Context, _ derived.DerivedMesh, cos []geom.Vec3) {
		offset(cos, settingsOf[TranslateSettings](md).Offset)
	}
	return &modifier.TypeInfo{
		Name:        Translate,
		Kind:        modifier.KindOnlyDeform,
		Flags:       modifier.FlagSupportsEditmode | modifier.FlagSupportsMapping | modifier.FlagEnableInEditmode,
		NewSettings: func() any { return &TranslateSettings{} },
		IsDisabled: func(md *modifier.Modifier) bool {
			return settingsOf[TranslateSettings](md).Offset == geom.Vec3{}
		},
		DeformVerts:   deform,
		DeformVertsEM: deform,
	}
}

func offset(cos []geom.Vec3, by geom.Vec3) {
	for i := range cos {
		cos[i] = cos[i].Add(by)
	}
}

// ParentDeformSettings carry the parent's offset into the virtual entry
// that list expansion puts in front of a deforming child's stack.
type ParentDeformSettings = modifier.ParentDeformSettings

func parentDeformInfo() *modifier.TypeInfo {
	deform := func(md *modifier.Modifier, _ *modifier.Context, _ derived.DerivedMesh, cos []geom.Vec3) {
		offset(cos, settingsOf[ParentDeformSettings](md).Offset)
	}
	return &modifier.TypeInfo{
		Name:          ParentDeform,
		Kind:          modifier.KindOnlyDeform,
		Flags:         modifier.FlagSupportsEditmode | modifier.FlagSupportsMapping | modifier.FlagEnableInEditmode,
		NewSettings:   func() any { return &ParentDeformSettings{} },
		DeformVerts:   deform,
		DeformVertsEM: deform,
	}
}

// HookSettings pull a fixed set of base-mesh vertices by Offset scaled by
// Force. The indices refer to the original mesh, so a hook cannot follow
// a modifier that rebuilds topology.
type HookSettings struct {
	Indices []int     `toml:"indices"`
	Offset  geom.Vec3 `toml:"offset"`
	Force   float32   `toml:"force"`
}

func hookInfo() *modifier.TypeInfo {
	deform := func(md *modifier.Modifier, _ *modifier.Context, _ derived.DerivedMesh, cos []geom.Vec3) {
		s := settingsOf[HookSettings](md)
		by := s.Offset.Scale(s.Force)
		for _, i := range s.Indices {
			if i >= 0 && i < len(cos) {
				cos[i] = cos[i].Add(by)
			}
		}
	}
	return &modifier.TypeInfo{
		Name:        Hook,
		Kind:        modifier.KindOnlyDeform,
		Flags:       modifier.FlagRequiresOriginalData | modifier.FlagSupportsEditmode | modifier.FlagSupportsMapping,
		NewSettings: func() any { return &HookSettings{Force: 1} },
		IsDisabled: func(md *modifier.Modifier) bool {
			s := settingsOf[HookSettings](md)
			return len(s.Indices) == 0 || s.Force == 0
		},
		DeformVerts:   deform,
		DeformVertsEM: deform,
	}
}

// SmoothSettings relax each vertex towards the average of its edge
// neighbours, Repeat times.
type SmoothSettings struct {
	Factor float32 `toml:"factor"`
	Repeat int     `toml:"repeat"`
}

func smoothInfo() *modifier.TypeInfo {
	deform := func(md *modifier.Modifier, ctx *modifier.Context, dm derived.DerivedMesh, cos []geom.Vec3) {
		s := settingsOf[SmoothSettings](md)
		smooth(cos, topologyEdges(ctx, dm), s.Factor, s.Repeat)
	}
	return &modifier.TypeInfo{
		Name:        Smooth,
		Kind:        modifier.KindOnlyDeform,
		Flags:       modifier.FlagSupportsEditmode | modifier.FlagSupportsMapping | modifier.FlagEnableInEditmode,
		NewSettings: func() any { return &SmoothSettings{Factor: 0.5, Repeat: 1} },
		IsDisabled: func(md *modifier.Modifier) bool {
			s := settingsOf[SmoothSettings](md)
			return s.Factor == 0 || s.Repeat <= 0
		},
		DeformVerts:   deform,
		DeformVertsEM: deform,
	}
}

func smooth(cos []geom.Vec3, edges []mesh.MEdge, factor float32, repeat int) {
	acc := make([]geom.Vec3, len(cos))
	count := make([]int, len(cos))
	for r := 0; r < repeat; r++ {
		clear(acc)
		clear(count)
		for _, e := range edges {
			a, b := e.V[0], e.V[1]
			acc[a] = acc[a].Add(cos[b])
			acc[b] = acc[b].Add(cos[a])
			count[a]++
			count[b]++
		}
		for i := range cos {
			if count[i] == 0 {
				continue
			}
			avg := acc[i].Scale(1 / float32(count[i]))
			cos[i] = cos[i].Lerp(avg, factor)
		}
	}
}
