// Package cip100 projects CIP-100 governance metadata documents.
//
// The types in this package only implement project.Projectable: nothing in
// the resolver or normalizer knows about them.
package cip100

// Namespace is the IRI prefix of the CIP-100 vocabulary.
const Namespace = "https://github.com/cardano-foundation/CIPs/blob/master/CIP-0100/README.md#"

// Fully-qualified meanings of CIP-100 fields.
const (
	HashAlgorithm   = Namespace + "hashAlgorithm"
	Authors         = Namespace + "authors"
	BodyField       = Namespace + "body"
	References      = Namespace + "references"
	Comment         = Namespace + "comment"
	ExternalUpdates = Namespace + "externalUpdates"

	UpdateTitle = Namespace + "update-title"
	UpdateURI   = Namespace + "update-uri"

	ReferenceTypeField          = Namespace + "referenceType"
	GovernanceMetadataReference = Namespace + "GovernanceMetadataReference"
	OtherReference              = Namespace + "OtherReference"
	ReferenceLabel              = Namespace + "reference-label"
	ReferenceURI                = Namespace + "reference-uri"

	AuthorName       = "http://xmlns.com/foaf/0.1/name"
	AuthorWitness    = Namespace + "witness"
	WitnessAlgorithm = Namespace + "witnessAlgorithm"
	WitnessPublicKey = Namespace + "publicKey"
	WitnessSignature = Namespace + "signature"
)
