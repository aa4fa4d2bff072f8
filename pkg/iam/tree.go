package iam

import (
	"context"

	"github.com/rotisserie/eris"
)

// Entry is one element of the browser tree. Profiles and sections are
// structural and not filterable; principals and policies are filterable.
type Entry interface {
	Name() string
	Filterable() bool
	// LoadChildren fetches the entry's children. Leaves return nil.
	LoadChildren(ctx context.Context) ([]Entry, error)
}

// PolicyEntry is a leaf with a viewable document.
type PolicyEntry interface {
	Entry
	Document(ctx context.Context) (string, error)
}

// Node pairs an entry with its loaded children. Children load lazily
// exactly once; Load with force drops them and fetches fresh data.
type Node struct {
	Entry    Entry
	Children []*Node
	loaded   bool
}

func (n *Node) Loaded() bool {
	return n.loaded
}

// Leaf reports whether the node can have children at all.
func (n *Node) Leaf() bool {
	_, isPolicy := n.Entry.(PolicyEntry)
	return isPolicy
}

func (n *Node) Load(ctx context.Context, force bool) error {
	if force {
		n.Children = nil
		n.loaded = false
	}

	if n.loaded {
		return nil
	}

	entries, err := n.Entry.LoadChildren(ctx)
	if err != nil {
		return err
	}

	n.Children = make([]*Node, len(entries))
	for idx, entry := range entries {
		n.Children[idx] = &Node{Entry: entry}
	}

	n.loaded = true
	return nil
}

// Tree is the profile → section → principal → policy hierarchy.
type Tree struct {
	Root *Node
}

// NewTree builds the tree for the given profiles. Clients dial lazily, the
// first time a profile is expanded.
func NewTree(profiles []string, dial Dialer) *Tree {
	root := &Node{Entry: rootEntry{profiles: profiles, dial: dial}}
	return &Tree{Root: root}
}

type rootEntry struct {
	profiles []string
	dial     Dialer
}

func (e rootEntry) Name() string     { return "profiles" }
func (e rootEntry) Filterable() bool { return false }

func (e rootEntry) LoadChildren(ctx context.Context) ([]Entry, error) {
	entries := make([]Entry, len(e.profiles))
	for idx, profile := range e.profiles {
		entries[idx] = &ProfileEntry{Profile: profile, dial: e.dial}
	}

	return entries, nil
}

// ProfileEntry is a top-level AWS profile.
type ProfileEntry struct {
	Profile string
	dial    Dialer
	client  Client
}

func (e *ProfileEntry) Name() string     { return e.Profile }
func (e *ProfileEntry) Filterable() bool { return false }

func (e *ProfileEntry) LoadChildren(ctx context.Context) ([]Entry, error) {
	if e.client == nil {
		client, err := e.dial(ctx, e.Profile)
		if err != nil {
			return nil, eris.Wrapf(err, "failed to connect profile %s", e.Profile)
		}
		e.client = client
	}

	return []Entry{
		&SectionEntry{Section: "users", Kind: KindUser, client: e.client},
		&SectionEntry{Section: "roles", Kind: KindRole, client: e.client},
	}, nil
}

// SectionEntry groups a profile's users or roles.
type SectionEntry struct {
	Section string
	Kind    PrincipalKind
	client  Client
}

func (e *SectionEntry) Name() string     { return e.Section }
func (e *SectionEntry) Filterable() bool { return false }

func (e *SectionEntry) LoadChildren(ctx context.Context) ([]Entry, error) {
	var names []string
	var err error

	switch e.Kind {
	case KindUser:
		names, err = e.client.Users(ctx)
	case KindRole:
		names, err = e.client.Roles(ctx)
	}
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, len(names))
	for idx, name := range names {
		entries[idx] = &PrincipalEntry{Principal: name, Kind: e.Kind, client: e.client}
	}

	return entries, nil
}

// PrincipalEntry is a user or role. Its children are the principal's inline
// policies followed by its attached policies.
type PrincipalEntry struct {
	Principal string
	Kind      PrincipalKind
	client    Client
}

func (e *PrincipalEntry) Name() string     { return e.Principal }
func (e *PrincipalEntry) Filterable() bool { return true }

func (e *PrincipalEntry) LoadChildren(ctx context.Context) ([]Entry, error) {
	inline, err := e.client.InlinePolicies(ctx, e.Kind, e.Principal)
	if err != nil {
		return nil, err
	}

	attached, err := e.client.AttachedPolicies(ctx, e.Kind, e.Principal)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(inline)+len(attached))
	for _, policy := range inline {
		entries = append(entries, &InlinePolicyEntry{Policy: policy})
	}
	for _, policy := range attached {
		entries = append(entries, &AttachedPolicyEntry{Policy: policy, client: e.client})
	}

	return entries, nil
}

// InlinePolicyEntry is a leaf whose document arrived with the listing.
type InlinePolicyEntry struct {
	Policy InlinePolicy
}

var _ PolicyEntry = (*InlinePolicyEntry)(nil)

func (e *InlinePolicyEntry) Name() string     { return e.Policy.Name }
func (e *InlinePolicyEntry) Filterable() bool { return true }

func (e *InlinePolicyEntry) LoadChildren(ctx context.Context) ([]Entry, error) {
	return nil, nil
}

func (e *InlinePolicyEntry) Document(ctx context.Context) (string, error) {
	return e.Policy.Document, nil
}

// AttachedPolicyEntry is a leaf whose document is fetched on first view and
// cached afterwards.
type AttachedPolicyEntry struct {
	Policy   AttachedPolicy
	client   Client
	document string
	fetched  bool
}

var _ PolicyEntry = (*AttachedPolicyEntry)(nil)

func (e *AttachedPolicyEntry) Name() string     { return e.Policy.Name }
func (e *AttachedPolicyEntry) Filterable() bool { return true }

func (e *AttachedPolicyEntry) LoadChildren(ctx context.Context) ([]Entry, error) {
	return nil, nil
}

func (e *AttachedPolicyEntry) Document(ctx context.Context) (string, error) {
	if e.fetched {
		return e.document, nil
	}

	document, err := e.client.PolicyDocument(ctx, e.Policy.ARN)
	if err != nil {
		return "", err
	}

	e.document = document
	e.fetched = true
	return e.document, nil
}
