package store

import (
	"context"
	"fmt"
	"strings"
)

// Outcome is the terminal state a build-manager request reached.
type Outcome string

const (
	OutcomeBuilt     Outcome = "built"
	OutcomeCacheHit  Outcome = "cache_hit"
	OutcomeEvaluated Outcome = "evaluated"
	OutcomeFailed    Outcome = "failed"
)

// Record is one manifest row.
type Record struct {
	Seq          int64
	Identity     string
	ModuleName   string
	Backend      string
	Convention   string
	Persistence  string
	SourceHash   string
	Outcome      Outcome
	ArtifactPath string
	ArtifactSize int64
	Diagnostics  string
	Generator    string
}

// Filter narrows ListBuilds. Zero values match everything.
type Filter struct {
	Identity string
	Backend  string
	Outcome  Outcome
	Limit    int
}

// RecordBuild appends r and returns its seq. r.Seq is ignored.
func (s *Store) RecordBuild(ctx context.Context, r Record) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO builds
		(identity, module_name, backend, convention, persistence, source_hash,
		 outcome, artifact_path, artifact_size, diagnostics, generator)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.Identity,
		r.ModuleName,
		r.Backend,
		r.Convention,
		r.Persistence,
		r.SourceHash,
		string(r.Outcome),
		r.ArtifactPath,
		r.ArtifactSize,
		r.Diagnostics,
		r.Generator,
	)
	if err != nil {
		return 0, fmt.Errorf("record build: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("record build: %w", err)
	}
	return seq, nil
}

// ListBuilds returns matching records ordered by seq.
func (s *Store) ListBuilds(ctx context.Context, f Filter) ([]Record, error) {
	var (
		where []string
		args  []any
	)
	if f.Identity != "" {
		where = append(where, "identity = ?")
		args = append(args, f.Identity)
	}
	if f.Backend != "" {
		where = append(where, "backend = ?")
		args = append(args, f.Backend)
	}
	if f.Outcome != "" {
		where = append(where, "outcome = ?")
		args = append(args, string(f.Outcome))
	}

	query := `
		SELECT seq, identity, module_name, backend, convention, persistence,
		       source_hash, outcome, artifact_path, artifact_size, diagnostics, generator
		FROM builds`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seq ASC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list builds: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			r       Record
			outcome string
		)
		if err := rows.Scan(
			&r.Seq, &r.Identity, &r.ModuleName, &r.Backend, &r.Convention, &r.Persistence,
			&r.SourceHash, &outcome, &r.ArtifactPath, &r.ArtifactSize, &r.Diagnostics, &r.Generator,
		); err != nil {
			return nil, fmt.Errorf("list builds: scan: %w", err)
		}
		r.Outcome = Outcome(outcome)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list builds: %w", err)
	}
	return out, nil
}

// CountOutcomes returns the number of records per outcome.
func (s *Store) CountOutcomes(ctx context.Context) (map[Outcome]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT outcome, COUNT(*) FROM builds GROUP BY outcome ORDER BY outcome ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("count outcomes: %w", err)
	}
	defer rows.Close()

	counts := make(map[Outcome]int)
	for rows.Next() {
		var (
			outcome string
			n       int
		)
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, fmt.Errorf("count outcomes: scan: %w", err)
		}
		counts[Outcome(outcome)] = n
	}
	return counts, rows.Err()
}
