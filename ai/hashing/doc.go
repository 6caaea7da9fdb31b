// Package hashing provides a local, deterministic ai.Embedder based on
// feature hashing.
//
// Text is lowercased, split on whitespace, trimmed of punctuation and
// filtered for stop words. Each remaining token increments the bucket
// fnv1a(token) mod D, and the count vector is scaled to unit length. Two
// texts are close under squared L2 when they share many tokens.
//
// The embedder needs no model server, so it is suited to offline builds,
// demos and tests. Its vectors are not comparable with those of any neural
// model; the model ID ("hashing-fnv1a-<D>") records that in artifact
// manifests.
package hashing
