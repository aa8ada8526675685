// Package catalog implements the cross-script registry of spec.md §4.F: a
// ranked overlay of databases, schemas, tables, and columns contributed by
// many catalog entries (analyzed scripts or descriptor pools), with
// monotonic id allocation and a deterministic flattened view.
//
// The mutex+version texture is grounded on the teacher's
// pkg/richcatalog (DBCatalog's sync.RWMutex + version-gated Snapshot), though
// here the source of truth is in-memory declared entries rather than a live
// Postgres introspection query.
package catalog

import (
	"sort"
	"sync"

	"github.com/dashql/dashql-go/internal/config"
	"github.com/dashql/dashql-go/internal/names"
	"github.com/dashql/dashql-go/internal/status"
)

// ObjectKind tags a QualifiedCatalogObjectID's payload.
type ObjectKind uint8

const (
	KindDeferred ObjectKind = iota
	KindDatabase
	KindSchema
	KindTable
	KindTableColumn
)

// ObjectID is the tagged, totally-ordered, hashable sum over
// {Deferred, Database, Schema, Table, TableColumn} described in spec.md §3.1.
// A and B carry the kind-specific payload (e.g. Table: A=table id; TableColumn:
// A=table id, B=column index).
type ObjectID struct {
	Kind ObjectKind
	A    uint32
	B    uint32
}

func DeferredID() ObjectID                 { return ObjectID{Kind: KindDeferred} }
func DatabaseObjectID(id uint32) ObjectID   { return ObjectID{Kind: KindDatabase, A: id} }
func SchemaObjectID(id uint32) ObjectID     { return ObjectID{Kind: KindSchema, A: id} }
func TableObjectID(id uint32) ObjectID      { return ObjectID{Kind: KindTable, A: id} }
func TableColumnObjectID(tableID, col uint32) ObjectID {
	return ObjectID{Kind: KindTableColumn, A: tableID, B: col}
}

// EncodeObjectID packs an ObjectID into the uint64 back-reference slots
// names.RegisteredName.ResolvedObjects holds, so the name registry (which
// sits below catalog in the dependency graph) never needs to know ObjectID's
// shape.
func EncodeObjectID(id ObjectID) uint64 {
	return uint64(id.Kind)<<56 | uint64(id.A)<<24 | uint64(id.B&0xFFFFFF)
}

// DecodeObjectID reverses EncodeObjectID.
func DecodeObjectID(packed uint64) ObjectID {
	return ObjectID{
		Kind: ObjectKind(packed >> 56),
		A:    uint32(packed >> 24),
		B:    uint32(packed & 0xFFFFFF),
	}
}

// Less gives ObjectID a total order: by kind, then A, then B.
func (o ObjectID) Less(other ObjectID) bool {
	if o.Kind != other.Kind {
		return o.Kind < other.Kind
	}
	if o.A != other.A {
		return o.A < other.A
	}
	return o.B < other.B
}

// TableColumn is one column of a TableDeclaration.
type TableColumn struct {
	Name  string
	Index int
}

// TableDeclaration is spec.md §3.4's table declaration.
type TableDeclaration struct {
	CatalogDatabaseID uint32
	CatalogSchemaID   uint32
	CatalogTableID    ObjectID
	DatabaseName      string
	SchemaName        string
	TableName         string
	Columns           []TableColumn
	ColumnsByName     map[string]int
}

func NewTableDeclaration(db, schema, table string, columnNames []string) *TableDeclaration {
	t := &TableDeclaration{
		DatabaseName:  db,
		SchemaName:    schema,
		TableName:     table,
		ColumnsByName: make(map[string]int, len(columnNames)),
	}
	for i, c := range columnNames {
		t.Columns = append(t.Columns, TableColumn{Name: c, Index: i})
		t.ColumnsByName[c] = i
	}
	return t
}

func (t *TableDeclaration) Qualified() (db, schema, table string) {
	return t.DatabaseName, t.SchemaName, t.TableName
}

// SchemaRef identifies a (database, schema) pair a catalog entry refers to.
type SchemaRef struct {
	DatabaseName string
	SchemaName   string
}

// Entry is anything the catalog can load: an analyzed script or a descriptor
// pool. Duck-typed so the analyzer package's AnalyzedScript can satisfy it
// without catalog importing analyzer (avoids an import cycle, since analyzer
// needs to call into catalog to resolve tables and allocate ids).
type Entry interface {
	ExternalID() uint32
	ReferencedDatabases() []string
	ReferencedSchemas() []SchemaRef
	Tables() []*TableDeclaration
	// NameRegistry returns this entry's owner-scoped name registry (spec.md
	// §4.B: "names are interned per owner, scanned script or descriptor
	// pool"), so the completion engine's non-dot identifier search
	// (spec.md §4.I.5) can repeat across every other loaded entry.
	NameRegistry() *names.Registry
}

// NameRegistryForTables builds a names.Registry over a descriptor pool's
// table and column names, for Entry implementations (internal/fixture,
// internal/ingest) that load declarations directly rather than through the
// scanner/analyzer pipeline and so never populate one during scanning.
func NameRegistryForTables(tables []*TableDeclaration) *names.Registry {
	reg := names.NewRegistry()
	for _, t := range tables {
		reg.Register(t.TableName, names.Location{}, names.TagTableName)
		for _, col := range t.Columns {
			reg.Register(col.Name, names.Location{}, names.TagColumnName)
		}
	}
	return reg
}

type databaseDecl struct {
	ID   uint32
	Name string
}

type schemaDecl struct {
	ID           uint32
	DatabaseID   uint32
	DatabaseName string
	Name         string
}

type entryRecord struct {
	entry Entry
	rank  int
}

// tableIDKey is the (catalog_entry_id, local_index) pair spec.md §3.1/§3.4
// define catalog_table_id over: a table's position within the slice its
// owning entry returns from Tables() never changes across re-analysis of
// that same entry, so the pair is a stable, globally unique handle for the
// table without needing name-based dedup the way database/schema ids do.
type tableIDKey struct {
	entryID    uint32
	localIndex int
}

// Catalog is the mutable cross-script registry.
type Catalog struct {
	mu sync.RWMutex

	entries map[uint32]*entryRecord

	databases map[string]*databaseDecl
	schemas   map[SchemaRef]*schemaDecl
	tableIDs  map[tableIDKey]uint32

	nextDatabaseID uint32
	nextSchemaID   uint32
	nextTableID    uint32

	version uint64
}

const (
	firstDatabaseID uint32 = 1 << 8
	firstSchemaID   uint32 = 1 << 16
	firstTableID    uint32 = 1 << 24
)

// New returns an empty catalog at version 1, per spec.md §8.3: "A catalog
// that has never observed any entry returns an empty flattening with
// catalog_version == 1."
func New() *Catalog {
	return &Catalog{
		entries:        make(map[uint32]*entryRecord),
		databases:      make(map[string]*databaseDecl),
		schemas:        make(map[SchemaRef]*schemaDecl),
		tableIDs:       make(map[tableIDKey]uint32),
		nextDatabaseID: firstDatabaseID,
		nextSchemaID:   firstSchemaID,
		nextTableID:    firstTableID,
		version:        1,
	}
}

func (c *Catalog) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// AllocateDatabaseID looks up name, assigning the next id on miss. Allocation
// does not create a declaration (spec.md §4.F).
func (c *Catalog) AllocateDatabaseID(name string) uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.allocateDatabaseIDLocked(name)
}

func (c *Catalog) allocateDatabaseIDLocked(name string) uint32 {
	if d, ok := c.databases[name]; ok {
		return d.ID
	}
	id := c.nextDatabaseID
	c.nextDatabaseID++
	return id
}

// AllocateSchemaID mirrors AllocateDatabaseID for (db, schema) pairs.
func (c *Catalog) AllocateSchemaID(db, schema string) uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.allocateSchemaIDLocked(db, schema)
}

func (c *Catalog) allocateSchemaIDLocked(db, schema string) uint32 {
	key := SchemaRef{db, schema}
	if s, ok := c.schemas[key]; ok {
		return s.ID
	}
	id := c.nextSchemaID
	c.nextSchemaID++
	return id
}

// allocateTableIDLocked assigns (or returns the already-assigned) table id
// for the localIndex'th table of entryID, per spec.md §3.1/§3.4's
// catalog_table_id = ContextObjectID(catalog_entry_id, local_index). Unlike
// database/schema ids, table ids are never deduplicated by name across
// entries: every entry's own tables get their own identity.
func (c *Catalog) allocateTableIDLocked(entryID uint32, localIndex int) uint32 {
	key := tableIDKey{entryID, localIndex}
	if id, ok := c.tableIDs[key]; ok {
		return id
	}
	id := c.nextTableID
	c.nextTableID++
	c.tableIDs[key] = id
	return id
}

// pruneTableIDsForEntryLocked drops the table id assignments of an entry
// that is no longer loaded, so DropScript doesn't leak allocator entries
// across repeated load/drop cycles of short-lived script ids.
func (c *Catalog) pruneTableIDsForEntryLocked(entryID uint32) {
	for key := range c.tableIDs {
		if key.entryID == entryID {
			delete(c.tableIDs, key)
		}
	}
}

func defaultNames(db, schema string) (string, string) {
	if db == "" {
		db = config.DefaultDatabaseName
	}
	if schema == "" {
		schema = config.DefaultSchemaName
	}
	return db, schema
}

// LoadScript registers entry at the given rank, per spec.md §4.F.
func (c *Catalog) LoadScript(entry Entry, rank int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := entry.ExternalID()
	if existing, ok := c.entries[id]; ok {
		if existing.entry != entry {
			return &status.Error{Code: status.ExternalIDCollision, Message: "catalog entry id already registered to a different entry"}
		}
		return c.updateScriptLocked(entry, rank)
	}

	if err := c.checkIDsInSyncLocked(entry); err != nil {
		return err
	}

	c.entries[id] = &entryRecord{entry: entry, rank: rank}
	c.materializeDeclarationsLocked(entry)
	c.version++
	return nil
}

// updateScriptLocked re-registers an already-loaded entry (spec.md's
// update_script): declarations are recomputed, stale ones pruned.
func (c *Catalog) updateScriptLocked(entry Entry, rank int) error {
	if err := c.checkIDsInSyncLocked(entry); err != nil {
		return err
	}
	rec := c.entries[entry.ExternalID()]
	rec.rank = rank
	c.materializeDeclarationsLocked(entry)
	c.pruneOrphanedDeclarationsLocked()
	c.version++
	return nil
}

// checkIDsInSyncLocked verifies that every database/schema the entry refers
// to either has no catalog declaration yet, or one with the same allocated
// id the entry itself would compute — spec.md §4.F's CATALOG_ID_OUT_OF_SYNC
// check (exercised by scenario S5).
func (c *Catalog) checkIDsInSyncLocked(entry Entry) error {
	for _, dbName := range entry.ReferencedDatabases() {
		db, _ := defaultNames(dbName, "")
		wouldBe := c.allocateDatabaseIDLocked(db)
		if existing, ok := c.databases[db]; ok && existing.ID != wouldBe {
			return &status.Error{Code: status.CatalogIDOutOfSync, Message: "database id out of sync: " + db}
		}
	}
	for _, ref := range entry.ReferencedSchemas() {
		db, schema := defaultNames(ref.DatabaseName, ref.SchemaName)
		wouldBe := c.allocateSchemaIDLocked(db, schema)
		if existing, ok := c.schemas[SchemaRef{db, schema}]; ok && existing.ID != wouldBe {
			return &status.Error{Code: status.CatalogIDOutOfSync, Message: "schema id out of sync: " + db + "." + schema}
		}
	}
	return nil
}

func (c *Catalog) materializeDeclarationsLocked(entry Entry) {
	entryID := entry.ExternalID()
	for i, t := range entry.Tables() {
		db, schema := defaultNames(t.DatabaseName, t.SchemaName)
		dbID := c.allocateDatabaseIDLocked(db)
		schemaID := c.allocateSchemaIDLocked(db, schema)
		t.CatalogDatabaseID = dbID
		t.CatalogSchemaID = schemaID
		t.CatalogTableID = TableObjectID(c.allocateTableIDLocked(entryID, i))
		if _, ok := c.databases[db]; !ok {
			c.databases[db] = &databaseDecl{ID: dbID, Name: db}
		}
		key := SchemaRef{db, schema}
		if _, ok := c.schemas[key]; !ok {
			c.schemas[key] = &schemaDecl{ID: schemaID, DatabaseID: dbID, DatabaseName: db, Name: schema}
		}
	}
}

// pruneOrphanedDeclarationsLocked drops database/schema declarations no
// longer referenced by any loaded entry.
func (c *Catalog) pruneOrphanedDeclarationsLocked() {
	referencedSchemas := make(map[SchemaRef]bool)
	referencedDatabases := make(map[string]bool)
	for _, rec := range c.entries {
		for _, dbName := range rec.entry.ReferencedDatabases() {
			db, _ := defaultNames(dbName, "")
			referencedDatabases[db] = true
		}
		for _, ref := range rec.entry.ReferencedSchemas() {
			db, schema := defaultNames(ref.DatabaseName, ref.SchemaName)
			referencedSchemas[SchemaRef{db, schema}] = true
		}
		for _, t := range rec.entry.Tables() {
			db, schema := defaultNames(t.DatabaseName, t.SchemaName)
			referencedDatabases[db] = true
			referencedSchemas[SchemaRef{db, schema}] = true
		}
	}
	for k := range c.schemas {
		if !referencedSchemas[k] {
			delete(c.schemas, k)
		}
	}
	for k := range c.databases {
		if !referencedDatabases[k] {
			delete(c.databases, k)
		}
	}
}

// DropScript removes all traces of the entry with the given external id.
func (c *Catalog) DropScript(externalID uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[externalID]; !ok {
		return
	}
	delete(c.entries, externalID)
	c.pruneTableIDsForEntryLocked(externalID)
	c.pruneOrphanedDeclarationsLocked()
	c.version++
}

// ResolvedTable is one match returned by ResolveTable.
type ResolvedTable struct {
	Table    *TableDeclaration
	EntryID  uint32
	Rank     int
}

// ResolveTable implements spec.md §4.F's resolve_table(qualified_name):
// fully-qualified direct hit first, then schema-only, then global unqualified
// search, early-terminating at limit. ignoreEntryID excludes one entry (the
// script being (re-)analyzed, before it is loaded).
func (c *Catalog) ResolveTable(parts []string, ignoreEntryID uint32, limit int) (selected *ResolvedTable, alternatives []*ResolvedTable) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var db, schema, table string
	switch len(parts) {
	case 1:
		table = parts[0]
	case 2:
		schema, table = parts[0], parts[1]
	default:
		db, schema, table = parts[0], parts[1], parts[len(parts)-1]
	}

	type hit struct {
		t    *ResolvedTable
	}
	var hits []hit

	rankedEntries := c.rankedEntryIDsLocked()
	for _, eid := range rankedEntries {
		if eid == ignoreEntryID {
			continue
		}
		rec := c.entries[eid]
		for _, t := range rec.entry.Tables() {
			if table != "" && t.TableName != table {
				continue
			}
			if schema != "" && t.SchemaName != schema {
				continue
			}
			if db != "" && t.DatabaseName != db {
				continue
			}
			hits = append(hits, hit{&ResolvedTable{Table: t, EntryID: eid, Rank: rec.rank}})
			if limit > 0 && len(hits) >= limit {
				break
			}
		}
		if limit > 0 && len(hits) >= limit {
			break
		}
	}

	if len(hits) == 0 {
		return nil, nil
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].t.Rank != hits[j].t.Rank {
			return hits[i].t.Rank < hits[j].t.Rank
		}
		return hits[i].t.EntryID < hits[j].t.EntryID
	})
	for _, h := range hits {
		alternatives = append(alternatives, h.t)
	}
	return alternatives[0], alternatives
}

// ResolveSchemaTables returns every table declared under schemaName, in any
// database, across all loaded entries — used by dot-completion
// (spec.md §4.I.4, `resolve_schema_tables_with_catalog`).
func (c *Catalog) ResolveSchemaTables(schemaName string) []*ResolvedTable {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []*ResolvedTable
	for _, eid := range c.rankedEntryIDsLocked() {
		rec := c.entries[eid]
		for _, t := range rec.entry.Tables() {
			if t.SchemaName == schemaName {
				out = append(out, &ResolvedTable{Table: t, EntryID: eid, Rank: rec.rank})
			}
		}
	}
	return out
}

// ResolveDatabaseSchemas returns every distinct schema name declared under
// dbName (spec.md §4.I.4, `resolve_database_schemas_with_catalog`).
func (c *Catalog) ResolveDatabaseSchemas(dbName string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	seen := make(map[string]bool)
	var out []string
	for key := range c.schemas {
		if key.DatabaseName == dbName && !seen[key.SchemaName] {
			seen[key.SchemaName] = true
			out = append(out, key.SchemaName)
		}
	}
	sort.Strings(out)
	return out
}

// ResolveTableColumns finds every (table, column) pair across all entries
// whose column name matches columnName — spec.md §4.I.6's
// `resolve_table_columns_with_catalog`, driving PromoteTablesAndPeersForUnresolvedColumns.
func (c *Catalog) ResolveTableColumns(columnName string) []*ResolvedTable {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []*ResolvedTable
	for _, eid := range c.rankedEntryIDsLocked() {
		rec := c.entries[eid]
		for _, t := range rec.entry.Tables() {
			if _, ok := t.ColumnsByName[columnName]; ok {
				out = append(out, &ResolvedTable{Table: t, EntryID: eid, Rank: rec.rank})
			}
		}
	}
	return out
}

func (c *Catalog) rankedEntryIDsLocked() []uint32 {
	ids := make([]uint32, 0, len(c.entries))
	for id := range c.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		ri, rj := c.entries[ids[i]].rank, c.entries[ids[j]].rank
		if ri != rj {
			return ri < rj
		}
		return ids[i] < ids[j]
	})
	return ids
}

// EntryRank returns the rank an entry was loaded at, and whether it is loaded.
func (c *Catalog) EntryRank(externalID uint32) (int, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.entries[externalID]
	if !ok {
		return 0, false
	}
	return rec.rank, true
}

// EntryIDs returns every loaded entry's external id, ordered by rank.
func (c *Catalog) EntryIDs() []uint32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rankedEntryIDsLocked()
}

// EntryByID returns the loaded entry with the given external id, for callers
// (the completion engine's cross-entry identifier search, spec.md §4.I.5)
// that need to reach an entry's own NameRegistry rather than its Tables.
func (c *Catalog) EntryByID(externalID uint32) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.entries[externalID]
	if !ok {
		return nil, false
	}
	return rec.entry, true
}

// FlattenedColumn is one row of Flatten's column array.
type FlattenedColumn struct {
	Database, Schema, Table, Column string
	Index                           int
}

// Flatten produces the deterministic flat view of spec.md §4.F as a single
// slice with one FlattenedColumn per column, ordered by (db, schema, table,
// column index), de-duplicated across entries with the highest-ranked entry
// winning ties. It emits no separate database, schema or table arrays.
func (c *Catalog) Flatten() []FlattenedColumn {
	c.mu.RLock()
	defer c.mu.RUnlock()

	type key struct{ db, schema, table string }
	winners := make(map[key]*ResolvedTable)
	for _, eid := range c.rankedEntryIDsLocked() {
		rec := c.entries[eid]
		for _, t := range rec.entry.Tables() {
			k := key{t.DatabaseName, t.SchemaName, t.TableName}
			if existing, ok := winners[k]; ok {
				if rec.rank >= existing.Rank {
					continue
				}
			}
			winners[k] = &ResolvedTable{Table: t, EntryID: eid, Rank: rec.rank}
		}
	}

	var out []FlattenedColumn
	for _, rt := range winners {
		for _, col := range rt.Table.Columns {
			out = append(out, FlattenedColumn{
				Database: rt.Table.DatabaseName,
				Schema:   rt.Table.SchemaName,
				Table:    rt.Table.TableName,
				Column:   col.Name,
				Index:    col.Index,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Database != b.Database {
			return a.Database < b.Database
		}
		if a.Schema != b.Schema {
			return a.Schema < b.Schema
		}
		if a.Table != b.Table {
			return a.Table < b.Table
		}
		return a.Index < b.Index
	})
	return out
}
