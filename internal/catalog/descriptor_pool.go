package catalog

import (
	"github.com/dashql/dashql-go/internal/names"
	"github.com/dashql/dashql-go/internal/status"
)

// ColumnDescriptor is one column of a schema-descriptor table (spec.md §6.3).
type ColumnDescriptor struct {
	ColumnName      string
	OrdinalPosition int
}

// TableDescriptor is one table of a schema descriptor.
type TableDescriptor struct {
	TableName string
	Columns   []ColumnDescriptor
}

// SchemaDescriptor is the detached buffer shape of spec.md §6.3.
type SchemaDescriptor struct {
	DatabaseName string
	SchemaName   string
	Tables       []TableDescriptor
}

// DescriptorPool is a catalog entry populated from externally supplied
// schema descriptors rather than SQL source (spec.md §3.4).
type DescriptorPool struct {
	externalID uint32
	tables     []*TableDeclaration
	nameReg    *names.Registry
}

// NewDescriptorPool returns an empty pool with the given catalog entry id.
func NewDescriptorPool(externalID uint32) *DescriptorPool {
	return &DescriptorPool{externalID: externalID}
}

func (p *DescriptorPool) ExternalID() uint32 { return p.externalID }

func (p *DescriptorPool) Tables() []*TableDeclaration { return p.tables }

// NameRegistry builds (and caches, until the next AddSchemaDescriptor
// invalidates it) this pool's owner-scoped name registry, satisfying Entry
// for the non-dot identifier search of spec.md §4.I.5.
func (p *DescriptorPool) NameRegistry() *names.Registry {
	if p.nameReg == nil {
		p.nameReg = NameRegistryForTables(p.tables)
	}
	return p.nameReg
}

func (p *DescriptorPool) ReferencedDatabases() []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range p.tables {
		if !seen[t.DatabaseName] {
			seen[t.DatabaseName] = true
			out = append(out, t.DatabaseName)
		}
	}
	return out
}

func (p *DescriptorPool) ReferencedSchemas() []SchemaRef {
	seen := make(map[SchemaRef]bool)
	var out []SchemaRef
	for _, t := range p.tables {
		ref := SchemaRef{t.DatabaseName, t.SchemaName}
		if !seen[ref] {
			seen[ref] = true
			out = append(out, ref)
		}
	}
	return out
}

// AddSchemaDescriptor validates and appends desc's tables into the pool, per
// the error taxonomy of spec.md §6.3.
func (p *DescriptorPool) AddSchemaDescriptor(desc SchemaDescriptor) error {
	if desc.Tables == nil {
		return &status.Error{Code: status.CatalogDescriptorTablesNull, Message: "descriptor tables is null"}
	}
	db, schema := defaultNames(desc.DatabaseName, desc.SchemaName)
	seen := make(map[string]bool)
	for _, existing := range p.tables {
		if existing.DatabaseName == db && existing.SchemaName == schema {
			seen[existing.TableName] = true
		}
	}
	for _, td := range desc.Tables {
		if td.TableName == "" {
			return &status.Error{Code: status.CatalogDescriptorTableNameEmpty, Message: "table name is empty"}
		}
		if seen[td.TableName] {
			return &status.Error{Code: status.CatalogDescriptorTableNameCollision, Message: "duplicate table: " + td.TableName}
		}
		seen[td.TableName] = true
		var colNames []string
		for _, c := range td.Columns {
			colNames = append(colNames, c.ColumnName)
		}
		decl := NewTableDeclaration(db, schema, td.TableName, colNames)
		p.tables = append(p.tables, decl)
	}
	p.nameReg = nil
	return nil
}

// DescriptorPoolRegistry tracks pools by id, the way the catalog's
// `descriptor_pool_entries` map does, so AddSchemaDescriptor's
// CATALOG_DESCRIPTOR_POOL_UNKNOWN check has something to consult.
type DescriptorPoolRegistry struct {
	pools map[uint32]*DescriptorPool
}

func NewDescriptorPoolRegistry() *DescriptorPoolRegistry {
	return &DescriptorPoolRegistry{pools: make(map[uint32]*DescriptorPool)}
}

func (r *DescriptorPoolRegistry) Add(id uint32) *DescriptorPool {
	p := NewDescriptorPool(id)
	r.pools[id] = p
	return p
}

func (r *DescriptorPoolRegistry) Get(id uint32) (*DescriptorPool, error) {
	p, ok := r.pools[id]
	if !ok {
		return nil, &status.Error{Code: status.CatalogDescriptorPoolUnknown, Message: "unknown descriptor pool"}
	}
	return p, nil
}

func (r *DescriptorPoolRegistry) Drop(id uint32) {
	delete(r.pools, id)
}
