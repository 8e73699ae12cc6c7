package ir

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainSource = "treefreeze/source/v1"
	DomainModel  = "treefreeze/model/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// SourceHash returns the content identity of generated source for a
// backend. Ephemeral artifacts are named after it.
func SourceHash(backend string, source []byte) string {
	data := make([]byte, 0, len(backend)+1+len(source))
	data = append(data, backend...)
	data = append(data, 0x00)
	data = append(data, source...)
	return hashWithDomain(DomainSource, data)
}

// ModelHash returns the structural identity of an IR model. Two models
// with equal hashes generate identical source for every backend.
func ModelHash(m Model) string {
	return hashWithDomain(DomainModel, appendModel(nil, m))
}

func appendModel(buf []byte, m Model) []byte {
	switch v := m.(type) {
	case *Tree:
		buf = append(buf, 'T')
		buf = binary.BigEndian.AppendUint64(buf, uint64(v.numFeatures))
		buf = binary.BigEndian.AppendUint64(buf, uint64(v.root))
		buf = binary.BigEndian.AppendUint64(buf, uint64(len(v.nodes)))
		for _, n := range v.nodes {
			if n.Leaf {
				buf = append(buf, 'L')
				buf = binary.BigEndian.AppendUint64(buf, math.Float64bits(n.Probability))
				continue
			}
			buf = append(buf, 'B')
			buf = binary.BigEndian.AppendUint64(buf, uint64(n.Feature))
			buf = binary.BigEndian.AppendUint64(buf, math.Float64bits(n.Threshold))
			buf = binary.BigEndian.AppendUint64(buf, uint64(n.Left))
			buf = binary.BigEndian.AppendUint64(buf, uint64(n.Right))
		}
	case *Ensemble:
		buf = append(buf, 'E')
		buf = binary.BigEndian.AppendUint64(buf, uint64(v.numFeatures))
		buf = binary.BigEndian.AppendUint64(buf, uint64(len(v.members)))
		for _, mem := range v.members {
			buf = appendModel(buf, mem)
		}
	}
	return buf
}
