// Package reconcile implements the external-model reconciler (spec §4.8):
// loading the externally supplied "SOL" user model and diffing it against
// the node store's current key set.
package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/elrafoon/ptnet-mgr/internal/logger"
	"github.com/elrafoon/ptnet-mgr/internal/model"
	"github.com/elrafoon/ptnet-mgr/internal/store"
	"github.com/elrafoon/ptnet-mgr/internal/telemetry"
)

// userModelFile is the fixed filename the source reads from model_root
// (sol/loader.rs: "sol.user.json").
const userModelFile = "sol.user.json"

// LoadAddresses reads dir/sol.user.json and returns the set of node
// addresses it names: every ballast, plus every sensor that is not
// part_of another entity (spec §4.8, source sol/loader.rs).
//
// encoding/json (stdlib) is used here rather than a third-party parser: no
// JSON library beyond invopop/jsonschema (schema generation, not parsing)
// and viper/mapstructure (config decoding, a different input surface)
// appears anywhere in the reference pack, so there is no ecosystem
// precedent to follow for parsing this one external file (see DESIGN.md).
func LoadAddresses(dir string) ([]model.NodeAddress, error) {
	path := filepath.Join(dir, userModelFile)
	logger.Info("reconcile: loading user model", "path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reconcile: read user model: %w", err)
	}

	var um UserModel
	if err := json.Unmarshal(data, &um); err != nil {
		return nil, fmt.Errorf("reconcile: decode user model: %w", err)
	}

	if um.Network == nil {
		return nil, nil
	}

	seen := make(map[model.NodeAddress]struct{})
	var addrs []model.NodeAddress
	add := func(raw string) error {
		addr, err := model.ParseUserAddress(raw)
		if err != nil {
			return err
		}
		if _, dup := seen[addr]; dup {
			return nil
		}
		seen[addr] = struct{}{}
		addrs = append(addrs, addr)
		return nil
	}

	for _, b := range um.Network.Ballasts {
		if err := add(b.Address); err != nil {
			return nil, fmt.Errorf("reconcile: ballast %q: %w", b.Name, err)
		}
	}
	for _, s := range um.Network.Sensors {
		if s.PartOf != nil {
			continue
		}
		if err := add(s.Address); err != nil {
			return nil, fmt.Errorf("reconcile: sensor %q: %w", s.Name, err)
		}
	}

	return addrs, nil
}

// Run diffs desired against st's current key set and applies the
// difference in two batches: MustCreate every address in desired but not
// in the store, then remove every address in the store but not in desired
// (spec §4.8, scenario S4).
func Run(ctx context.Context, st *store.Store, desiredAddrs []model.NodeAddress) error {
	ctx, span := telemetry.StartReconcileSpan(ctx, len(desiredAddrs))
	defer span.End()

	current, err := st.List(ctx)
	if err != nil {
		return fmt.Errorf("reconcile: list: %w", err)
	}

	desired := make(map[model.NodeAddress]struct{}, len(desiredAddrs))
	for _, a := range desiredAddrs {
		desired[a] = struct{}{}
	}
	existing := make(map[model.NodeAddress]struct{}, len(current))
	for _, a := range current {
		existing[a] = struct{}{}
	}

	var toInsert []model.NodeAddress
	for _, a := range desiredAddrs {
		if _, ok := existing[a]; !ok {
			toInsert = append(toInsert, a)
		}
	}
	var toRemove []model.NodeAddress
	for _, a := range current {
		if _, ok := desired[a]; !ok {
			toRemove = append(toRemove, a)
		}
	}

	if len(toInsert) > 0 {
		recs := make([]model.NodeRecord, len(toInsert))
		for i, a := range toInsert {
			recs[i] = model.NodeRecord{Address: a}
		}
		if err := st.UpdateMany(ctx, recs, store.MustCreate); err != nil {
			return fmt.Errorf("reconcile: insert: %w", err)
		}
	}
	if len(toRemove) > 0 {
		if err := st.RemoveMany(ctx, toRemove); err != nil {
			return fmt.Errorf("reconcile: remove: %w", err)
		}
	}

	logger.Info("reconcile: pass complete", "inserted", len(toInsert), "removed", len(toRemove))
	return nil
}
