// Package wikigraph compiles a wikipedia dump into a binary link
// graph that can be traversed by following raw file offsets.
//
// The dumps are available from the wikimedia group here:
//    http://dumps.wikimedia.org/
//
// Compiling takes two passes.  Plan reads the dump once, extracts each
// article's links, decides the byte offset its node will occupy, and
// stores title -> offset and redirect records in a store.  It also
// writes a spool: one line per node with its planned offset and link
// targets.  Compile then replays the spool, resolves every link to an
// offset through the store, and writes the graph, checking that every
// node lands exactly where it was planned.
//
// See tools/wikigraph for a command that drives both passes.
package wikigraph
