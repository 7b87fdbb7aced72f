// Package sod decodes the ICAO-9303 security object (EF.SOD) and the
// active-authentication public key container (DG15). Navigation is done over
// an explicit tagged-variant tree instead of re-using encoding/asn1 struct
// tags: the EF.SOD shape mixes application, context-specific and universal
// tags in ways the reflection-based decoder cannot express, and a failed
// step must report exactly where the structure diverged.
package sod

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Class is an ASN.1 tag class.
type Class uint8

const (
	ClassUniversal Class = iota
	ClassApplication
	ClassContextSpecific
	ClassPrivate
)

// Universal tag numbers used by the EF.SOD structural path.
const (
	TagInteger     = 2
	TagBitString   = 3
	TagOctetString = 4
	TagOID         = 6
	TagSequence    = 16
	TagSet         = 17
)

// Node is one decoded TLV. Constructed nodes carry Children, primitive
// nodes carry Value. Raw always holds the full identifier+length+content
// encoding.
type Node struct {
	Class       Class
	Tag         uint32
	Constructed bool
	Raw         []byte
	Value       []byte
	Children    []*Node
}

var errTruncated = errors.New("truncated encoding")

// Decode parses a single DER value and returns it together with any
// trailing bytes. Indefinite lengths are rejected: EF.SOD content is DER.
func Decode(data []byte) (*Node, []byte, error) {
	if len(data) < 2 {
		return nil, nil, errTruncated
	}

	ident := data[0]
	node := &Node{
		Class:       Class(ident >> 6),
		Constructed: ident&0x20 != 0,
	}

	offset := 1
	tag := uint32(ident & 0x1f)
	if tag == 0x1f {
		// High tag number form: base-128 continuation bytes.
		tag = 0
		for {
			if offset >= len(data) {
				return nil, nil, errTruncated
			}
			b := data[offset]
			offset++
			tag = tag<<7 | uint32(b&0x7f)
			if b&0x80 == 0 {
				break
			}
			if tag > 1<<24 {
				return nil, nil, errors.New("tag number overflow")
			}
		}
	}
	node.Tag = tag

	if offset >= len(data) {
		return nil, nil, errTruncated
	}

	lenByte := data[offset]
	offset++

	var length int
	switch {
	case lenByte < 0x80:
		length = int(lenByte)
	case lenByte == 0x80:
		return nil, nil, errors.New("indefinite length is not valid DER")
	default:
		n := int(lenByte & 0x7f)
		if n > 4 || offset+n > len(data) {
			return nil, nil, errors.New("invalid length encoding")
		}
		for i := 0; i < n; i++ {
			length = length<<8 | int(data[offset+i])
		}
		offset += n
	}

	if length < 0 || offset+length > len(data) {
		return nil, nil, errTruncated
	}

	node.Raw = data[:offset+length]
	node.Value = data[offset : offset+length]

	if node.Constructed {
		rest := node.Value
		for len(rest) > 0 {
			child, tail, err := Decode(rest)
			if err != nil {
				return nil, nil, err
			}
			node.Children = append(node.Children, child)
			rest = tail
		}
	}

	return node, data[offset+length:], nil
}

// OID decodes the node content as an object identifier in dotted form.
func (n *Node) OID() (string, error) {
	if n.Class != ClassUniversal || n.Tag != TagOID || len(n.Value) == 0 {
		return "", errors.New("node is not an object identifier")
	}

	var sb strings.Builder
	first := int(n.Value[0])
	sb.WriteString(strconv.Itoa(first / 40))
	sb.WriteByte('.')
	sb.WriteString(strconv.Itoa(first % 40))

	var acc uint64
	for _, b := range n.Value[1:] {
		acc = acc<<7 | uint64(b&0x7f)
		if b&0x80 == 0 {
			sb.WriteByte('.')
			sb.WriteString(strconv.FormatUint(acc, 10))
			acc = 0
		}
	}
	if acc != 0 {
		return "", errors.New("truncated object identifier")
	}

	return sb.String(), nil
}

func (c Class) String() string {
	switch c {
	case ClassUniversal:
		return "universal"
	case ClassApplication:
		return "application"
	case ClassContextSpecific:
		return "context"
	default:
		return "private"
	}
}

func (n *Node) describe() string {
	return fmt.Sprintf("%s %d", n.Class, n.Tag)
}
