package sod

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Step is one expected tag on a structural path. Index selects among
// several children carrying the same class and tag (0 is the first).
type Step struct {
	Class Class
	Tag   uint32
	Index int
}

// Path is a declarative route through a decoded tree.
type Path []Step

// PathError reports the step at which a structural walk failed.
type PathError struct {
	Path Path
	At   int
	Err  error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("structure mismatch at %s, step %d: %v",
		e.Path.String(), e.At, e.Err)
}

func (e *PathError) Unwrap() error { return e.Err }

func (p Path) String() string {
	parts := make([]string, len(p))
	for i, s := range p {
		parts[i] = fmt.Sprintf("%s/%d", s.Class, s.Tag)
	}
	return strings.Join(parts, " -> ")
}

// Walk descends from root following the path and returns the final node.
// Each step matches children by class and tag; a missing match produces a
// PathError identifying the failed step.
func Walk(root *Node, path Path) (*Node, error) {
	node := root
	for i, step := range path {
		var found *Node
		seen := 0
		for _, child := range node.Children {
			if child.Class != step.Class || child.Tag != step.Tag {
				continue
			}
			if seen == step.Index {
				found = child
				break
			}
			seen++
		}
		if found == nil {
			return nil, &PathError{
				Path: path,
				At:   i,
				Err: errors.Errorf("no child %s/%d under %s",
					step.Class, step.Tag, node.describe()),
			}
		}
		node = found
	}
	return node, nil
}
