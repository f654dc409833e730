/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package plancache

import (
	"io"

	"github.com/tinylib/msgp/msgp"
)

// MarshalMsg appends the MessagePack encoding of c to b, written by hand
// in the shape msgp's code generator would have produced for a two-field
// struct: an array header followed by each field in declaration order.
func (c *CorePlan) MarshalMsg(b []byte) ([]byte, error) {
	b = msgp.AppendArrayHeader(b, 2)
	b = msgp.AppendString(b, c.ParsedToken)
	b = msgp.AppendBytes(b, c.Fragment)
	return b, nil
}

// UnmarshalMsg decodes a CorePlan previously written by MarshalMsg,
// returning the remaining unconsumed bytes.
func (c *CorePlan) UnmarshalMsg(bts []byte) ([]byte, error) {
	sz, bts, err := msgp.ReadArrayHeaderBytes(bts)
	if err != nil {
		return bts, err
	}
	if sz != 2 {
		return bts, msgp.ArrayError{Wanted: 2, Got: sz}
	}
	c.ParsedToken, bts, err = msgp.ReadStringBytes(bts)
	if err != nil {
		return bts, err
	}
	c.Fragment, bts, err = msgp.ReadBytesBytes(bts, c.Fragment)
	return bts, err
}

// SaveSnapshot streams the given core plans out in MessagePack form (an
// array header, then each plan's parsed token and fragment), as an
// optional, process-local warm-start file. Nothing in this package loads
// a snapshot into a Cache, and the file carries no SQL text or bound
// constants. The export stream and planner have no other durability
// surface of their own (the top end owns replay).
func SaveSnapshot(w io.Writer, plans []*CorePlan) error {
	mw := msgp.NewWriter(w)
	if err := mw.WriteArrayHeader(uint32(len(plans))); err != nil {
		return err
	}
	for _, p := range plans {
		if err := mw.WriteString(p.ParsedToken); err != nil {
			return err
		}
		if err := mw.WriteBytes(p.Fragment); err != nil {
			return err
		}
	}
	return mw.Flush()
}

// LoadSnapshot reads back what SaveSnapshot wrote.
func LoadSnapshot(r io.Reader) ([]*CorePlan, error) {
	mr := msgp.NewReader(r)
	n, err := mr.ReadArrayHeader()
	if err != nil {
		return nil, err
	}
	plans := make([]*CorePlan, 0, n)
	for i := uint32(0); i < n; i++ {
		token, err := mr.ReadString()
		if err != nil {
			return nil, err
		}
		frag, err := mr.ReadBytes(nil)
		if err != nil {
			return nil, err
		}
		plans = append(plans, &CorePlan{ParsedToken: token, Fragment: frag})
	}
	return plans, nil
}
