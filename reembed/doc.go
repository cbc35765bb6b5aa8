// Package reembed regenerates the embeddings of stored transcript chunks,
// typically after switching embedding models, and refreshes the vector
// index of every item that was already indexed.
//
// Chunks are embedded in batches with retry and exponential backoff, and
// vectors are normalized so similarity queries stay cosine-based.
package reembed
