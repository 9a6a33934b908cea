package soma_test

import "github.com/somaproj/organelle/synapse"

// kind is the minimal synapse.Kind used across this package's plain
// tests — its Split is never exercised here, only its identity as a type
// parameter, so it deliberately shares the trivial int-channel shape used
// throughout the engine's other fixtures.
type kind int

func (kind) String() string { return "Kind" }
func (kind) Split() (synapse.Terminal, synapse.Dendrite) {
	return synapse.NewChanSynapse[int](1)
}
