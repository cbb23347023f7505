// Package bag models checksum-manifested storage packages: a payload
// directory plus tag files that describe and checksum it.
//
// A Bag value is immutable. Every mutation returns a new Bag and leaves
// the receiver untouched; nothing reaches disk until Save, which
// reconciles the whole directory in one pass.
//
// Basic usage:
//
//	b, _ := bag.New("archive", bag.WithAlgorithms(bag.SHA256, bag.SHA512))
//
//	// Stage payload content
//	b, _ = b.AddData("notes/readme.md", data)
//	b, _ = b.AddFile(ctx, "images", "/srv/scans")
//
//	// Descriptive metadata
//	b = b.AddInfo("Source-Organization", "Example Libraries")
//	b = b.AddInfo("Contact-Email", "archives@example.org")
//
//	// Write everything: payload, manifests, bag-info, tag manifests
//	b, _ = b.Save(ctx)
//
//	// Later: load and check
//	b, _ = bag.Read("archive")
//	if err := b.Verify(ctx); err != nil {
//	    // corrupted or missing files, one error per problem
//	}
//
// Remote payload can be referenced instead of stored:
//
//	b, _ = b.AddFetch(ctx, "https://example.org/big.tar", -1, "big.tar")
//
// The source is retrieved once to record its digests, then discarded;
// only the (url, size, destination) triple is kept in the fetch file.
//
// Turning an existing directory into a bag, and packing one up:
//
//	b, _ := bag.CreateFromDirectory(ctx, "/srv/export")
//	b, _ = b.Save(ctx)
//
//	f, _ := os.Create("export.tar.gz")
//	b.Export(f, bag.CompressionGzip)
package bag
