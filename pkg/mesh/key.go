package mesh

import "github.com/chazu/dmesh/pkg/geom"

// KeyBlock is one stored shape.
type KeyBlock struct {
	Name   string
	Cos    []geom.Vec3
	Weight float32
}

// Key is a set of shape keys. The first block is the reference shape that
// the others are relative to.
type Key struct {
	Blocks []KeyBlock
}

// Clone returns a deep copy.
func (k *Key) Clone() *Key {
	c := &Key{Blocks: make([]KeyBlock, len(k.Blocks))}
	for i, kb := range k.Blocks {
		c.Blocks[i] = KeyBlock{Name: kb.Name, Cos: geom.CopyCos(kb.Cos), Weight: kb.Weight}
	}
	return c
}

// HasKey reports whether the mesh has a shape key that deforms it.
func (m *Mesh) HasKey() bool {
	return m.Key != nil && len(m.Key.Blocks) > 1
}

// KeyedCos evaluates the shape keys: the reference shape plus each other
// block's weighted offset from it. Without keys it is VertexCos.
func (m *Mesh) KeyedCos() []geom.Vec3 {
	if !m.HasKey() {
		return m.VertexCos()
	}
	ref := m.Key.Blocks[0].Cos
	cos := geom.CopyCos(ref)
	for _, kb := range m.Key.Blocks[1:] {
		if kb.Weight == 0 {
			continue
		}
		for i := range cos {
			cos[i] = cos[i].Add(kb.Cos[i].Sub(ref[i]).Scale(kb.Weight))
		}
	}
	return cos
}
