package mempool

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"foundrchain/core/storage"
)

// Peer is a recorded network node. Nothing reads peers for consensus.
type Peer struct {
	ID      string    `json:"id"`
	Address string    `json:"address"`
	AddedAt time.Time `json:"addedAt"`
}

// PeerSet is the Network document.
type PeerSet struct {
	mu    sync.Mutex
	store storage.StateBackend
	peers map[string]Peer // ID -> Peer
}

// LoadPeerSet restores the peer list from store.
func LoadPeerSet(store storage.StateBackend) (*PeerSet, error) {
	ps := &PeerSet{store: store, peers: make(map[string]Peer)}
	var list []Peer
	err := storage.GetJSON(store, storage.KeyNetwork, &list)
	if errors.Is(err, storage.ErrNotFound) {
		return ps, nil
	}
	if err != nil {
		return nil, err
	}
	for _, p := range list {
		ps.peers[p.ID] = p
	}
	return ps, nil
}

// AddPeer adds or updates a peer and persists the set.
func (ps *PeerSet) AddPeer(peer Peer) error {
	if strings.TrimSpace(peer.ID) == "" || strings.TrimSpace(peer.Address) == "" {
		return fmt.Errorf("peer id and address are required")
	}
	if peer.AddedAt.IsZero() {
		peer.AddedAt = time.Now().UTC()
	}
	ps.mu.Lock()
	defer ps.mu.Unlock()
	prev, had := ps.peers[peer.ID]
	ps.peers[peer.ID] = peer
	if err := storage.PutJSON(ps.store, storage.KeyNetwork, ps.listLocked()); err != nil {
		if had {
			ps.peers[peer.ID] = prev
		} else {
			delete(ps.peers, peer.ID)
		}
		return err
	}
	return nil
}

// RemovePeer removes a peer by ID.
func (ps *PeerSet) RemovePeer(id string) error {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	prev, had := ps.peers[id]
	if !had {
		return nil
	}
	delete(ps.peers, id)
	if err := storage.PutJSON(ps.store, storage.KeyNetwork, ps.listLocked()); err != nil {
		ps.peers[id] = prev
		return err
	}
	return nil
}

// GetPeer returns a peer by ID (and bool for existence)
func (ps *PeerSet) GetPeer(id string) (Peer, bool) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	peer, ok := ps.peers[id]
	return peer, ok
}

// ListPeers returns every peer ordered by ID.
func (ps *PeerSet) ListPeers() []Peer {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.listLocked()
}

func (ps *PeerSet) listLocked() []Peer {
	peers := make([]Peer, 0, len(ps.peers))
	for _, peer := range ps.peers {
		peers = append(peers, peer)
	}
	sort.Slice(peers, func(i, j int) bool { return peers[i].ID < peers[j].ID })
	return peers
}
