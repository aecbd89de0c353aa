package cip100

import (
	"fmt"

	"github.com/aretw0/govmeta/pkg/core"
	"github.com/aretw0/govmeta/pkg/node"
	"github.com/aretw0/govmeta/pkg/project"
)

// Document is a CIP-100 governance metadata document.
type Document struct {
	// HashAlgorithm is the algorithm used to hash the body when signing.
	HashAlgorithm string   `json:"hashAlgorithm"`
	Authors       []Author `json:"authors"`
	Body          Body     `json:"body"`
}

func (d *Document) ProjectNode(n *node.Node) error {
	var err error
	if d.HashAlgorithm, err = project.String(n, HashAlgorithm); err != nil {
		return err
	}
	if d.Authors, err = project.NestedAll[Author](n, Authors); err != nil {
		return err
	}
	if d.Body, err = project.Nested[Body](n, BodyField); err != nil {
		return err
	}
	return nil
}

// Author is a party who co-signs the document.
type Author struct {
	// Name is self-reported and only as trustworthy as the witness key behind it.
	Name    string  `json:"name"`
	Witness Witness `json:"witness"`
}

func (a *Author) ProjectNode(n *node.Node) error {
	var err error
	if a.Name, err = project.String(n, AuthorName); err != nil {
		return err
	}
	if a.Witness, err = project.Nested[Witness](n, AuthorWitness); err != nil {
		return err
	}
	return nil
}

// Witness attests that an author approved the document.
type Witness struct {
	Algorithm string `json:"witnessAlgorithm"`
	PublicKey string `json:"publicKey"`
	Signature string `json:"signature"`
}

func (w *Witness) ProjectNode(n *node.Node) error {
	var err error
	if w.Algorithm, err = project.String(n, WitnessAlgorithm); err != nil {
		return err
	}
	if w.PublicKey, err = project.String(n, WitnessPublicKey); err != nil {
		return err
	}
	if w.Signature, err = project.String(n, WitnessSignature); err != nil {
		return err
	}
	return nil
}

// Body is the signed content of the document.
type Body struct {
	References []Reference `json:"references,omitempty"`
	// Comment is free-form text.
	Comment string `json:"comment"`
	// ExternalUpdates lists where follow-ups are published. Their content is unauthenticated.
	ExternalUpdates []Update `json:"externalUpdates,omitempty"`
}

func (b *Body) ProjectNode(n *node.Node) error {
	var err error
	if b.References, err = project.NestedAll[Reference](n, References); err != nil {
		return err
	}
	if b.Comment, err = project.String(n, Comment); err != nil {
		return err
	}
	if b.ExternalUpdates, err = project.NestedAll[Update](n, ExternalUpdates); err != nil {
		return err
	}
	return nil
}

// ReferenceType tells how a referenced document should be read.
type ReferenceType int

const (
	// ReferenceOther is any document not assumed to follow CIP-100.
	ReferenceOther ReferenceType = iota
	// ReferenceGovernanceMetadata is another CIP-100 governance metadata document.
	ReferenceGovernanceMetadata
)

func (t ReferenceType) String() string {
	switch t {
	case ReferenceGovernanceMetadata:
		return "GovernanceMetadata"
	default:
		return "Other"
	}
}

// MarshalText renders the short type name.
func (t ReferenceType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Reference points at a document giving additional context.
type Reference struct {
	Type  ReferenceType `json:"@type"`
	Label string        `json:"label"`
	URI   string        `json:"uri"`
}

func (r *Reference) ProjectNode(n *node.Node) error {
	if len(n.Types) != 1 {
		return &core.ProjectionError{Meaning: ReferenceTypeField, Reason: core.ReasonType, Err: fmt.Errorf("expected exactly one type tag, found %d", len(n.Types))}
	}
	switch n.Types[0] {
	case GovernanceMetadataReference:
		r.Type = ReferenceGovernanceMetadata
	case OtherReference:
		r.Type = ReferenceOther
	default:
		return &core.ProjectionError{Meaning: ReferenceTypeField, Reason: core.ReasonType, Err: fmt.Errorf("unknown reference type %q", n.Types[0])}
	}

	var err error
	if r.Label, err = project.String(n, ReferenceLabel); err != nil {
		return err
	}
	if r.URI, err = project.IRI(n, ReferenceURI); err != nil {
		return err
	}
	return nil
}

// Update is a place where updates about the document are published.
type Update struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

func (u *Update) ProjectNode(n *node.Node) error {
	var err error
	if u.Title, err = project.String(n, UpdateTitle); err != nil {
		return err
	}
	if u.URI, err = project.IRI(n, UpdateURI); err != nil {
		return err
	}
	return nil
}
