// Package bundle moves envelope blocks between stores as a deterministic TAR archive.
//
// Layout:
//
//	blocks/<cid>   one entry per block, bytes exactly as stored
//	index.json     optional; block sizes, envelope digests, and labels
//
// Import never trusts the index: every block is checked against its entry name.
package bundle

import (
	"archive/tar"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/ipfs/go-cid"

	"xdao.co/envelope/cidutil"
	"xdao.co/envelope/envelope"
	"xdao.co/envelope/storage"
)

// FormatVersion is the current bundle index schema version.
const FormatVersion = 1

var epoch0 = time.Unix(0, 0).UTC()

// ExportOptions controls bundle export behavior.
type ExportOptions struct {
	// Labels is optional, non-authoritative metadata mapping names to CIDs.
	Labels map[string]cid.Cid
	// IncludeIndex controls whether index.json is included.
	IncludeIndex bool
}

// Export writes a TAR bundle containing the blocks for ids. Entry order is lexicographic and
// headers are normalized, so equal inputs give equal bytes.
func Export(w io.Writer, cas storage.CAS, ids []cid.Cid, opts ExportOptions) error {
	if cas == nil {
		return fmt.Errorf("bundle: nil CAS")
	}

	uniq := make(map[cid.Cid]struct{}, len(ids))
	for _, id := range ids {
		if !id.Defined() {
			return storage.ErrInvalidCID
		}
		uniq[id] = struct{}{}
	}

	tw := tar.NewWriter(w)
	fail := func(err error) error {
		_ = tw.Close()
		return err
	}

	sorted := storage.SortCIDs(uniq)
	blocks := make([]indexBlock, 0, len(sorted))
	for _, id := range sorted {
		b, err := cas.Get(id)
		if err != nil {
			return fail(err)
		}
		if !cidutil.Verify(id, b) {
			return fail(storage.ErrCIDMismatch)
		}
		if err := writeFile(tw, "blocks/"+id.String(), b); err != nil {
			return fail(err)
		}
		entry := indexBlock{CID: id.String(), Size: len(b)}
		if e, err := envelope.Decode(b); err == nil {
			entry.Digest = e.Digest().Hex()
		}
		blocks = append(blocks, entry)
	}

	if opts.IncludeIndex {
		idx := indexJSON{
			Version:   FormatVersion,
			CIDCodec:  "raw",
			Multihash: "sha2-256",
			Blocks:    blocks,
		}
		labels, err := sortedLabels(opts.Labels)
		if err != nil {
			return fail(err)
		}
		idx.Labels = labels

		b, err := marshalIndexJSON(idx)
		if err != nil {
			return fail(err)
		}
		if err := writeFile(tw, "index.json", b); err != nil {
			return fail(err)
		}
	}

	return tw.Close()
}

func sortedLabels(in map[string]cid.Cid) ([]indexLabel, error) {
	if len(in) == 0 {
		return nil, nil
	}
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	labels := make([]indexLabel, 0, len(keys))
	for _, k := range keys {
		if k == "" {
			return nil, fmt.Errorf("bundle: empty label key")
		}
		v := in[k]
		if !v.Defined() {
			return nil, storage.ErrInvalidCID
		}
		labels = append(labels, indexLabel{Name: k, CID: v.String()})
	}
	return labels, nil
}

// ImportOptions controls bundle import behavior.
type ImportOptions struct {
	// IgnoreUnknown skips unknown TAR entries instead of failing.
	IgnoreUnknown bool
	// RequireEnvelopes fails the import on any block that does not decode as an envelope.
	RequireEnvelopes bool
}

// Import reads a bundle from r into cas, failing closed on unknown entries.
func Import(r io.Reader, cas storage.CAS) ([]cid.Cid, error) {
	return ImportWithOptions(r, cas, ImportOptions{})
}

// ImportWithOptions reads a bundle from r into cas and returns the imported CIDs in entry
// order. Each block must hash to the CID in its entry name.
func ImportWithOptions(r io.Reader, cas storage.CAS, opts ImportOptions) ([]cid.Cid, error) {
	if cas == nil {
		return nil, fmt.Errorf("bundle: nil CAS")
	}

	tr := tar.NewReader(r)
	seen := map[cid.Cid]struct{}{}
	var imported []cid.Cid

	for {
		h, err := tr.Next()
		if err == io.EOF {
			return imported, nil
		}
		if err != nil {
			return imported, err
		}
		name := cleanTarPath(h.Name)
		if name == "" {
			return imported, fmt.Errorf("bundle: invalid entry path: %q", h.Name)
		}

		if h.Typeflag != tar.TypeReg {
			if opts.IgnoreUnknown {
				continue
			}
			return imported, fmt.Errorf("bundle: unexpected tar entry type: %v (%s)", h.Typeflag, name)
		}

		if name == "index.json" {
			_, _ = io.Copy(io.Discard, tr)
			continue
		}

		if !strings.HasPrefix(name, "blocks/") {
			if opts.IgnoreUnknown {
				_, _ = io.Copy(io.Discard, tr)
				continue
			}
			return imported, fmt.Errorf("bundle: unknown entry: %s", name)
		}

		id, err := cidutil.Parse(strings.TrimPrefix(name, "blocks/"))
		if err != nil {
			return imported, storage.ErrInvalidCID
		}

		payload, err := io.ReadAll(tr)
		if err != nil {
			return imported, err
		}
		if !cidutil.Verify(id, payload) {
			return imported, storage.ErrCIDMismatch
		}
		if opts.RequireEnvelopes {
			if _, err := envelope.Decode(payload); err != nil {
				return imported, fmt.Errorf("%w: %s: %v", storage.ErrNotEnvelope, id, err)
			}
		}

		if _, ok := seen[id]; ok {
			return imported, fmt.Errorf("bundle: duplicate block entry: %s", id)
		}
		seen[id] = struct{}{}

		putID, err := cas.Put(payload)
		if err != nil {
			return imported, err
		}
		if !putID.Equals(id) {
			return imported, storage.ErrCIDMismatch
		}
		imported = append(imported, id)
	}
}

type indexJSON struct {
	Version   int          `json:"version"`
	CIDCodec  string       `json:"cidCodec"`
	Multihash string       `json:"multihash"`
	Blocks    []indexBlock `json:"blocks"`
	Labels    []indexLabel `json:"labels,omitempty"`
}

type indexBlock struct {
	CID    string `json:"cid"`
	Size   int    `json:"size"`
	Digest string `json:"digest,omitempty"`
}

type indexLabel struct {
	Name string `json:"name"`
	CID  string `json:"cid"`
}

// marshalIndexJSON relies on indexJSON holding only structs and slices, which encoding/json
// writes in a fixed order.
func marshalIndexJSON(idx indexJSON) ([]byte, error) {
	b, err := json.Marshal(idx)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

func writeFile(tw *tar.Writer, name string, content []byte) error {
	hdr := &tar.Header{
		Name:     name,
		Mode:     0o644,
		Size:     int64(len(content)),
		ModTime:  epoch0,
		Typeflag: tar.TypeReg,
		Format:   tar.FormatUSTAR,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err := io.Copy(tw, bytes.NewReader(content))
	return err
}

func cleanTarPath(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimPrefix(name, "./")
	name = strings.TrimPrefix(name, "/")
	if name == "" {
		return ""
	}
	parts := strings.Split(name, "/")
	for _, part := range parts {
		if part == "" || part == "." || part == ".." {
			return ""
		}
	}
	return name
}
