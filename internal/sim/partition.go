package sim

import "sort"

const partitionCellSize = 32.0

type cellKey struct {
	cx, cy int32
}

// Partition is a grid-bucketed spatial index over live objects.
// Results are sorted by ObjectID: map iteration order must never leak into
// simulation decisions.
type Partition struct {
	cells map[cellKey][]*Object
}

func NewPartition() *Partition {
	return &Partition{cells: make(map[cellKey][]*Object, 64)}
}

func keyFor(pos Vector3) cellKey {
	return cellKey{
		cx: int32(pos.X / partitionCellSize),
		cy: int32(pos.Y / partitionCellSize),
	}
}

func (p *Partition) Insert(obj *Object) {
	k := keyFor(obj.Position())
	p.cells[k] = append(p.cells[k], obj)
}

func (p *Partition) Remove(obj *Object) {
	k := keyFor(obj.Position())
	bucket := p.cells[k]
	for i, o := range bucket {
		if o == obj {
			p.cells[k] = append(bucket[:i], bucket[i+1:]...)
			break
		}
	}
	if len(p.cells[k]) == 0 {
		delete(p.cells, k)
	}
}

// Move updates an object's position, rebucketing if it crossed a cell edge.
func (p *Partition) Move(obj *Object, next Vector3) {
	oldKey := keyFor(obj.Position())
	newKey := keyFor(next)
	if oldKey == newKey {
		obj.pos = next
		return
	}
	p.Remove(obj)
	obj.pos = next
	p.Insert(obj)
}

// Nearby returns live objects within radius of pos whose kind intersects the
// mask, ordered by ascending ObjectID. Marked objects are excluded.
func (p *Partition) Nearby(pos Vector3, radius float32, kinds Kind) []*Object {
	if radius < 0 {
		return nil
	}
	minX := int32((pos.X - radius) / partitionCellSize)
	maxX := int32((pos.X + radius) / partitionCellSize)
	minY := int32((pos.Y - radius) / partitionCellSize)
	maxY := int32((pos.Y + radius) / partitionCellSize)

	var out []*Object
	for cx := minX - 1; cx <= maxX+1; cx++ {
		for cy := minY - 1; cy <= maxY+1; cy++ {
			for _, obj := range p.cells[cellKey{cx, cy}] {
				if obj.Marked() || obj.Kind()&kinds == 0 {
					continue
				}
				if dist2D(pos, obj.Position()) <= radius {
					out = append(out, obj)
				}
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}
