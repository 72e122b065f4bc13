package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"strings"
)

// Domain prefixes for content hashes. The version suffix allows the hashed
// shape to change without colliding with older hashes.
const (
	DomainNode     = "outliner/node/v1"
	DomainDocument = "outliner/document/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// nodeContent is the hashed projection of a node. Timestamps and the owning
// document are excluded: two stores holding the same structure and payloads
// hash equal even when their clocks disagree.
func nodeContent(n Node) IRObject {
	parents := make(IRArray, len(n.ParentIDs))
	for i, p := range n.ParentIDs {
		parents[i] = IRString(p)
	}
	order := make(IRArray, len(n.Order))
	for i, o := range n.Order {
		order[i] = IRInt(o)
	}
	data := n.Data
	if data == nil {
		data = IRObject{}
	}
	return IRObject{
		"id":          IRString(n.ID),
		"name":        IRString(n.Name),
		"template_id": IRString(n.TemplateID),
		"data":        data,
		"parent_ids":  parents,
		"order":       order,
		"is_starred":  IRBool(n.IsStarred),
		"position":    IRInt(n.Position),
	}
}

// NodeHash computes the content hash of a single node.
func NodeHash(n Node) (string, error) {
	canonical, err := MarshalCanonical(nodeContent(n))
	if err != nil {
		return "", fmt.Errorf("NodeHash %s: %w", n.ID, err)
	}
	return hashWithDomain(DomainNode, canonical), nil
}

// ContentHash computes an order-independent hash over a set of nodes.
// The sync poller uses it to tell a real remote edit from timestamp drift.
func ContentHash(nodes []Node) (string, error) {
	hashes := make([]string, 0, len(nodes))
	for _, n := range nodes {
		h, err := NodeHash(n)
		if err != nil {
			return "", err
		}
		hashes = append(hashes, h)
	}
	slices.Sort(hashes)
	return hashWithDomain(DomainDocument, []byte(strings.Join(hashes, "\n"))), nil
}

// MustContentHash is like ContentHash but panics on error.
// Use only in tests or when payloads are known to be valid.
func MustContentHash(nodes []Node) string {
	h, err := ContentHash(nodes)
	if err != nil {
		panic(err)
	}
	return h
}
