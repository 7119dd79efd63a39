// Package dedup decodes Debian binary packages (.deb files) into a stream
// of records describing every regular file they contain, each tagged with
// a family of content hashes chosen so that semantically equal payloads —
// the same bytes wrapped in a different gzip level, or the same image
// re-chunked into a different PNG/GIF layout — collide on at least one
// hash even though their raw bytes differ.
//
// A .deb is an ar(5) archive holding, in order, a debian-binary member
// (ignored), a control.tar member (parsed for package metadata), and a
// data.tar member (walked file by file). [Decoder] drives that walk one
// record at a time through [Decoder.Next]; the supporting packages ar,
// internal/container, hashing, image, and control implement the pieces
// of the pipeline each record passes through.
package dedup
