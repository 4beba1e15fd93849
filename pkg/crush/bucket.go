package crush

import (
	"fmt"

	"github.com/eunmann/crushtool/pkg/wire"
)

// bucketHeaderSize is id, type, alg, hash, weight, and size.
const bucketHeaderSize = 4 + 2 + 1 + 1 + 4 + 4

// Item is a bucket member: a device (id >= 0) or a child bucket (id < 0).
// Name is filled by the resolution pass when the name table has the id.
type Item struct {
	ID   int32
	Name *string
}

// BucketHeader is the part shared by every bucket algorithm.
type BucketHeader struct {
	ID     int32
	Type   uint16 // hierarchy level, named by Map.Types
	Alg    Algorithm
	Hash   Hash
	Weight uint32 // 16.16 fixed point
	Size   uint32
	Items  []Item

	// Runtime permutation state. Never written; Perm is seeded to Size.
	PermN uint32
	Perm  uint32
}

// Bucket is one bucket slot. The concrete type is one of *UniformBucket,
// *ListBucket, *TreeBucket, *StrawBucket, *Straw2Bucket, or
// *UnrecognizedBucket.
type Bucket interface {
	// RecordTag is the u32 that precedes the bucket on the wire.
	RecordTag() uint32
	// Head returns the shared header, or nil for an empty slot.
	Head() *BucketHeader

	encodePayload(w *wire.Writer) error
}

// UniformBucket weights every item equally.
type UniformBucket struct {
	BucketHeader
	ItemWeight uint32
}

// ListWeight is a list bucket's per-item weight and running sum.
type ListWeight struct {
	Item uint32
	Sum  uint32
}

// ListBucket stores items with cumulative weights.
type ListBucket struct {
	BucketHeader
	Weights []ListWeight
}

// TreeBucket stores node weights of a binary tree over its items.
type TreeBucket struct {
	BucketHeader
	NumNodes    uint8
	NodeWeights []uint32
}

// StrawWeight is a straw bucket's per-item weight and straw length.
type StrawWeight struct {
	Item  uint32
	Straw uint32
}

// StrawBucket is the original straw algorithm.
type StrawBucket struct {
	BucketHeader
	Weights []StrawWeight
}

// Straw2Bucket stores one weight per item.
type Straw2Bucket struct {
	BucketHeader
	Weights []uint32
}

// UnrecognizedBucket is a slot whose record tag names no known algorithm.
// Tag 0 is an empty slot with no header. Any other tag keeps the header and
// item ids that were read; the payload that may have followed is not known
// and was not consumed.
//
// Encoding writes an unrecognized bucket as an empty slot.
type UnrecognizedBucket struct {
	Tag    uint32
	Header *BucketHeader
}

func (b *UniformBucket) RecordTag() uint32 { return uint32(AlgUniform) }
func (b *ListBucket) RecordTag() uint32    { return uint32(AlgList) }
func (b *TreeBucket) RecordTag() uint32    { return uint32(AlgTree) }
func (b *StrawBucket) RecordTag() uint32   { return uint32(AlgStraw) }
func (b *Straw2Bucket) RecordTag() uint32  { return uint32(AlgStraw2) }
func (b *UnrecognizedBucket) RecordTag() uint32 {
	return b.Tag
}

func (b *UniformBucket) Head() *BucketHeader { return &b.BucketHeader }
func (b *ListBucket) Head() *BucketHeader    { return &b.BucketHeader }
func (b *TreeBucket) Head() *BucketHeader    { return &b.BucketHeader }
func (b *StrawBucket) Head() *BucketHeader   { return &b.BucketHeader }
func (b *Straw2Bucket) Head() *BucketHeader  { return &b.BucketHeader }
func (b *UnrecognizedBucket) Head() *BucketHeader {
	return b.Header
}

// decodeBucket reads one bucket record.
func decodeBucket(r *wire.Reader) (Bucket, error) {
	tag, err := r.U32()
	if err != nil {
		return nil, fmt.Errorf("read record tag: %w", err)
	}
	if tag == 0 {
		return &UnrecognizedBucket{}, nil
	}

	h, err := decodeHeader(r)
	if err != nil {
		return nil, err
	}

	if tag > 0xFF || !Algorithm(tag).Known() {
		return &UnrecognizedBucket{Tag: tag, Header: &h}, nil
	}
	if !h.Alg.Known() {
		return nil, fmt.Errorf("%w: header algorithm %d in bucket %d", ErrUnknownTag, uint8(h.Alg), h.ID)
	}
	if !h.Hash.Known() {
		return nil, fmt.Errorf("%w: hash %d in bucket %d", ErrUnknownTag, uint8(h.Hash), h.ID)
	}

	switch Algorithm(tag) {
	case AlgUniform:
		w, err := r.U32()
		if err != nil {
			return nil, fmt.Errorf("uniform bucket %d weight: %w", h.ID, err)
		}
		return &UniformBucket{BucketHeader: h, ItemWeight: w}, nil

	case AlgList:
		if err := r.Need(uint64(h.Size), 8); err != nil {
			return nil, fmt.Errorf("list bucket %d weights: %w", h.ID, err)
		}
		weights := make([]ListWeight, h.Size)
		for i := range weights {
			weights[i].Item, _ = r.U32()
			weights[i].Sum, _ = r.U32()
		}
		return &ListBucket{BucketHeader: h, Weights: weights}, nil

	case AlgTree:
		n, err := r.U8()
		if err != nil {
			return nil, fmt.Errorf("tree bucket %d node count: %w", h.ID, err)
		}
		if err := r.Need(uint64(n), 4); err != nil {
			return nil, fmt.Errorf("tree bucket %d node weights: %w", h.ID, err)
		}
		nodes := make([]uint32, n)
		for i := range nodes {
			nodes[i], _ = r.U32()
		}
		return &TreeBucket{BucketHeader: h, NumNodes: n, NodeWeights: nodes}, nil

	case AlgStraw:
		if err := r.Need(uint64(h.Size), 8); err != nil {
			return nil, fmt.Errorf("straw bucket %d weights: %w", h.ID, err)
		}
		weights := make([]StrawWeight, h.Size)
		for i := range weights {
			weights[i].Item, _ = r.U32()
			weights[i].Straw, _ = r.U32()
		}
		return &StrawBucket{BucketHeader: h, Weights: weights}, nil

	default: // AlgStraw2
		if err := r.Need(uint64(h.Size), 4); err != nil {
			return nil, fmt.Errorf("straw2 bucket %d weights: %w", h.ID, err)
		}
		weights := make([]uint32, h.Size)
		for i := range weights {
			weights[i], _ = r.U32()
		}
		return &Straw2Bucket{BucketHeader: h, Weights: weights}, nil
	}
}

func decodeHeader(r *wire.Reader) (BucketHeader, error) {
	var h BucketHeader
	if err := r.Need(1, bucketHeaderSize); err != nil {
		return h, fmt.Errorf("bucket header: %w", err)
	}
	id, _ := r.I32()
	typ, _ := r.U16()
	alg, _ := r.U8()
	hash, _ := r.U8()
	weight, _ := r.U32()
	size, _ := r.U32()

	if err := r.Need(uint64(size), 4); err != nil {
		return h, fmt.Errorf("bucket %d items: %w", id, err)
	}
	items := make([]Item, size)
	for i := range items {
		items[i].ID, _ = r.I32()
	}

	return BucketHeader{
		ID:     id,
		Type:   typ,
		Alg:    Algorithm(alg),
		Hash:   Hash(hash),
		Weight: weight,
		Size:   size,
		Items:  items,
		Perm:   size,
	}, nil
}

// encodeBucket writes the record tag, header, and payload of b.
func encodeBucket(w *wire.Writer, b Bucket) error {
	if u, ok := b.(*UnrecognizedBucket); ok {
		return u.encodePayload(w)
	}

	h := b.Head()
	if uint64(len(h.Items)) != uint64(h.Size) {
		return fmt.Errorf("%w: bucket %d has %d items, size %d", ErrInvalidValue, h.ID, len(h.Items), h.Size)
	}
	if !h.Alg.Known() {
		return fmt.Errorf("%w: header algorithm %d in bucket %d", ErrInvalidValue, uint8(h.Alg), h.ID)
	}
	if !h.Hash.Known() {
		return fmt.Errorf("%w: hash %d in bucket %d", ErrInvalidValue, uint8(h.Hash), h.ID)
	}

	w.U32(b.RecordTag())
	encodeHeader(w, h)
	return b.encodePayload(w)
}

func encodeHeader(w *wire.Writer, h *BucketHeader) {
	w.I32(h.ID)
	w.U16(h.Type)
	w.U8(uint8(h.Alg))
	w.U8(uint8(h.Hash))
	w.U32(h.Weight)
	w.U32(h.Size)
	for _, it := range h.Items {
		w.I32(it.ID)
	}
}

func (b *UniformBucket) encodePayload(w *wire.Writer) error {
	w.U32(b.ItemWeight)
	return nil
}

func (b *ListBucket) encodePayload(w *wire.Writer) error {
	if uint64(len(b.Weights)) != uint64(b.Size) {
		return fmt.Errorf("%w: list bucket %d has %d weights, size %d", ErrInvalidValue, b.ID, len(b.Weights), b.Size)
	}
	for _, lw := range b.Weights {
		w.U32(lw.Item)
		w.U32(lw.Sum)
	}
	return nil
}

func (b *TreeBucket) encodePayload(w *wire.Writer) error {
	if len(b.NodeWeights) != int(b.NumNodes) {
		return fmt.Errorf("%w: tree bucket %d has %d node weights, count %d", ErrInvalidValue, b.ID, len(b.NodeWeights), b.NumNodes)
	}
	w.U8(b.NumNodes)
	for _, nw := range b.NodeWeights {
		w.U32(nw)
	}
	return nil
}

func (b *StrawBucket) encodePayload(w *wire.Writer) error {
	if uint64(len(b.Weights)) != uint64(b.Size) {
		return fmt.Errorf("%w: straw bucket %d has %d weights, size %d", ErrInvalidValue, b.ID, len(b.Weights), b.Size)
	}
	for _, sw := range b.Weights {
		w.U32(sw.Item)
		w.U32(sw.Straw)
	}
	return nil
}

func (b *Straw2Bucket) encodePayload(w *wire.Writer) error {
	if uint64(len(b.Weights)) != uint64(b.Size) {
		return fmt.Errorf("%w: straw2 bucket %d has %d weights, size %d", ErrInvalidValue, b.ID, len(b.Weights), b.Size)
	}
	for _, v := range b.Weights {
		w.U32(v)
	}
	return nil
}

func (b *UnrecognizedBucket) encodePayload(w *wire.Writer) error {
	w.U32(0)
	return nil
}
