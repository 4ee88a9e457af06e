// Package graphstore persists a completed schedule to KuzuDB as an audit
// graph: one node per task instance, one DEPENDS_ON edge per predecessor
// link carrying the predecessor's float and the task's configured delay.
// It is optional — no
// component of a scheduling run requires it to succeed, and a run never
// blocks on it.
package graphstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/kuzudb/go-kuzu"

	"github.com/conplan/scheduler/internal/scheduler"
)

// ConnectionManager pools kuzu.Connection handles against a single
// database, mirroring the pool-and-release discipline the rest of the
// engine's transport layers use for scarce resources.
type ConnectionManager struct {
	database    *kuzu.Database
	connections chan *kuzu.Connection
	mu          sync.Mutex
	closed      bool
}

// Open creates (or attaches to) the KuzuDB database at path and
// pre-populates a pool of maxConnections connections.
func Open(path string, maxConnections int) (*ConnectionManager, error) {
	db, err := kuzu.OpenDatabase(path, kuzu.DefaultSystemConfig())
	if err != nil {
		return nil, fmt.Errorf("opening kuzu database at %s: %w", path, err)
	}

	cm := &ConnectionManager{database: db, connections: make(chan *kuzu.Connection, maxConnections)}
	for i := 0; i < maxConnections; i++ {
		conn, err := kuzu.NewConnection(db)
		if err != nil {
			cm.Close()
			return nil, fmt.Errorf("creating kuzu connection %d: %w", i, err)
		}
		cm.connections <- conn
	}
	return cm, nil
}

func (cm *ConnectionManager) acquire(ctx context.Context) (*kuzu.Connection, error) {
	select {
	case conn := <-cm.connections:
		return conn, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (cm *ConnectionManager) release(conn *kuzu.Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.closed {
		conn.Close()
		return
	}
	cm.connections <- conn
}

// Close releases every pooled connection and the underlying database
// handle. Safe to call once after all writers are done.
func (cm *ConnectionManager) Close() {
	cm.mu.Lock()
	cm.closed = true
	close(cm.connections)
	cm.mu.Unlock()
	for conn := range cm.connections {
		conn.Close()
	}
	if cm.database != nil {
		cm.database.Close()
	}
}

// EnsureSchema creates the Task node table and DEPENDS_ON relationship
// table if they don't already exist. Call once before the first WriteRun.
func (cm *ConnectionManager) EnsureSchema(ctx context.Context) error {
	conn, err := cm.acquire(ctx)
	if err != nil {
		return err
	}
	defer cm.release(conn)

	stmts := []string{
		`CREATE NODE TABLE IF NOT EXISTS Task(
			id STRING, run_id STRING, base_id STRING, discipline STRING,
			zone STRING, floor INT64, start_date TIMESTAMP, end_date TIMESTAMP,
			allocated_crews INT64, float INT64, PRIMARY KEY(id));`,
		`CREATE REL TABLE IF NOT EXISTS DEPENDS_ON(
			FROM Task TO Task, delay_days INT64, predecessor_float INT64);`,
	}
	for _, stmt := range stmts {
		if _, err := conn.Query(stmt); err != nil {
			return fmt.Errorf("ensuring graphstore schema: %w", err)
		}
	}
	return nil
}

// WriteRun persists every task of sched as a Task node and every
// predecessor link as a DEPENDS_ON edge, all tagged with runID so
// multiple runs can coexist in the same database for later audit.
func (cm *ConnectionManager) WriteRun(ctx context.Context, runID string, sched *scheduler.Schedule) error {
	conn, err := cm.acquire(ctx)
	if err != nil {
		return err
	}
	defer cm.release(conn)

	for _, t := range sched.Tasks {
		stmt, err := conn.Prepare(`
			MERGE (t:Task {id: $id})
			SET t.run_id = $run_id, t.base_id = $base_id, t.discipline = $discipline,
			    t.zone = $zone, t.floor = $floor, t.start_date = $start_date,
			    t.end_date = $end_date, t.allocated_crews = $allocated_crews, t.float = $float;
		`)
		if err != nil {
			return fmt.Errorf("preparing task merge for %s: %w", t.ID, err)
		}
		_, err = conn.Execute(stmt, map[string]interface{}{
			"id":              t.ID,
			"run_id":          runID,
			"base_id":         t.BaseID,
			"discipline":      t.Discipline,
			"zone":            t.Zone,
			"floor":           int64(t.Floor),
			"start_date":      t.StartDate,
			"end_date":        t.EndDate,
			"allocated_crews": int64(t.AllocatedCrews),
			"float":           int64(t.Float),
		})
		if err != nil {
			return fmt.Errorf("writing task node for %s: %w", t.ID, err)
		}

		for _, predID := range t.Predecessors {
			edgeStmt, err := conn.Prepare(`
				MATCH (p:Task {id: $pred_id}), (t:Task {id: $task_id})
				MERGE (p)-[d:DEPENDS_ON]->(t)
				SET d.delay_days = $delay_days, d.predecessor_float = $predecessor_float;
			`)
			if err != nil {
				return fmt.Errorf("preparing dependency edge %s->%s: %w", predID, t.ID, err)
			}
			_, err = conn.Execute(edgeStmt, map[string]interface{}{
				"pred_id":           predID,
				"task_id":           t.ID,
				"delay_days":        int64(t.Base.Delay),
				"predecessor_float": int64(sched.Analysis.Float[predID]),
			})
			if err != nil {
				return fmt.Errorf("writing dependency edge %s->%s: %w", predID, t.ID, err)
			}
		}
	}
	return nil
}
