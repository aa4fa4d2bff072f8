package ui

import "github.com/tatsuya4559/iambrowser/pkg/iam"

// nodeLoadedMsg reports that a node's children finished loading.
type nodeLoadedMsg struct {
	node *iam.Node
	err  error
}

// policyDocMsg carries a selected policy's document into the document pane.
type policyDocMsg struct {
	name     string
	document string
	err      error
}
