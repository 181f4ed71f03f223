package candy

import (
	"encoding/binary"
	"math/big"

	"github.com/minio/highwayhash"
)

// cseKey is the fixed HighwayHash key used for MIR structural hashing.
// CSE only needs a fast, well-distributed hash to bucket candidate
// subtrees, not a secret one, so a fixed all-zero key is fine.
var cseKey = make([]byte, 32)

// eliminateCommonSubtrees replaces a pure binding with a Reference to
// an earlier binding that is structurally identical (same shape and,
// transitively, structurally identical operands), the way a hash-consing
// compiler collapses duplicate subtrees. Each binding's structural hash
// folds in the already-computed hashes of whatever it references, so
// equality here really does mean "builds the same value", not just
// "same literal HirID".
func eliminateCommonSubtrees(b *MirBody) bool {
	changed := false
	idHash := map[string]uint64{}
	eliminateRec(b, idHash, map[uint64][]cseCandidate{}, &changed)
	return changed
}

type cseCandidate struct {
	id    HirID
	bytes string
}

func eliminateRec(b *MirBody, idHash map[string]uint64, buckets map[uint64][]cseCandidate, changed *bool) {
	for i := range b.Bindings {
		bind := &b.Bindings[i]

		if lam, ok := bind.Expr.(MirLambda); ok {
			childHash := make(map[string]uint64, len(idHash))
			for k, v := range idHash {
				childHash[k] = v
			}
			for _, p := range lam.Parameters {
				childHash[p.String()] = paramPlaceholderHash(p)
			}
			childHash[lam.ResponsibleParameter.String()] = paramPlaceholderHash(lam.ResponsibleParameter)
			eliminateRec(&lam.Body, childHash, map[uint64][]cseCandidate{}, changed)
			bind.Expr = lam
		}

		key, ok := canonicalBytes(bind.Expr, idHash)
		if !ok {
			continue
		}
		h := highwayhash.Sum64(key, cseKey)

		if isPureValue(bind.Expr) {
			if existing, found := findCandidate(buckets[h], key); found {
				bind.Expr = MirReference{Target: existing}
				idHash[bind.ID.String()] = idHash[existing.String()]
				*changed = true
				continue
			}
			buckets[h] = append(buckets[h], cseCandidate{id: bind.ID, bytes: key})
		}
		idHash[bind.ID.String()] = h
	}
}

func findCandidate(candidates []cseCandidate, bytes string) (HirID, bool) {
	for _, c := range candidates {
		if c.bytes == bytes {
			return c.id, true
		}
	}
	return HirID{}, false
}

func paramPlaceholderHash(id HirID) uint64 {
	return highwayhash.Sum64([]byte("param:"+id.String()), cseKey)
}

// canonicalBytes encodes expr's shape plus, for each HirID it
// references, the referenced binding's already-known structural hash
// (not its literal ID) so that e.g. two separately constructed structs
// with the same field values hash identically.
func canonicalBytes(expr MirExpression, idHash map[string]uint64) (string, bool) {
	var buf []byte
	writeHash := func(id HirID) {
		var tmp [8]byte
		binary.LittleEndian.PutUint64(tmp[:], idHash[id.String()])
		buf = append(buf, tmp[:]...)
	}
	tag := func(t byte) { buf = append(buf, t) }

	switch e := expr.(type) {
	case MirInt:
		tag('i')
		buf = append(buf, []byte(bigIntKey(e.Value))...)
	case MirText:
		tag('t')
		buf = append(buf, []byte(e.Value)...)
	case MirSymbol:
		tag('s')
		buf = append(buf, []byte(e.Name)...)
	case MirBuiltin:
		tag('b')
		buf = append(buf, []byte(e.Function.String())...)
	case MirStruct:
		tag('S')
		for _, f := range e.Fields {
			writeHash(f.Key)
			writeHash(f.Value)
		}
	default:
		return "", false
	}
	return string(buf), true
}

func bigIntKey(v *big.Int) string {
	if v == nil {
		return "nil"
	}
	return v.String()
}
