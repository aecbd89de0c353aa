// Package cip108 projects CIP-108 governance action metadata.
//
// CIP-108 extends CIP-100: the document envelope (hash algorithm, authors) is
// the same, only the body carries additional fields.
package cip108

import (
	"github.com/aretw0/govmeta/pkg/cip100"
	"github.com/aretw0/govmeta/pkg/node"
	"github.com/aretw0/govmeta/pkg/project"
)

// Namespace is the IRI prefix of the CIP-108 vocabulary.
const Namespace = "https://github.com/cardano-foundation/CIPs/blob/master/CIP-0108/README.md#"

const (
	BodyField  = Namespace + "body"
	Title      = Namespace + "title"
	Abstract   = Namespace + "abstract"
	Motivation = Namespace + "motivation"
	Rationale  = Namespace + "rationale"
	References = Namespace + "references"
)

// Document is a governance action metadata document.
type Document struct {
	HashAlgorithm string          `json:"hashAlgorithm"`
	Authors       []cip100.Author `json:"authors"`
	Body          Body            `json:"body"`
}

func (d *Document) ProjectNode(n *node.Node) error {
	var err error
	if d.HashAlgorithm, err = project.String(n, cip100.HashAlgorithm); err != nil {
		return err
	}
	if d.Authors, err = project.NestedAll[cip100.Author](n, cip100.Authors); err != nil {
		return err
	}
	if d.Body, err = project.Nested[Body](n, BodyField); err != nil {
		return err
	}
	return nil
}

// Body describes a governance action.
type Body struct {
	Title      string             `json:"title"`
	Abstract   string             `json:"abstract"`
	Motivation string             `json:"motivation"`
	Rationale  string             `json:"rationale"`
	References []cip100.Reference `json:"references,omitempty"`
}

func (b *Body) ProjectNode(n *node.Node) error {
	var err error
	if b.Title, err = project.String(n, Title); err != nil {
		return err
	}
	if b.Abstract, err = project.String(n, Abstract); err != nil {
		return err
	}
	if b.Motivation, err = project.String(n, Motivation); err != nil {
		return err
	}
	if b.Rationale, err = project.String(n, Rationale); err != nil {
		return err
	}
	if b.References, err = project.NestedAll[cip100.Reference](n, References); err != nil {
		return err
	}
	return nil
}
