// Package store provides MongoDB persistence for leads and import bookkeeping.
//
// Collections (all in database "leadgen"):
//   - leads           – one document per lead, unique on lead_id
//   - schema_columns  – canonical column definitions (_id = column name)
//   - import_logs     – one document per processed file
//   - mapping_events  – manual header-mapping decisions
package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kexy2025/leadgen/internal/domain"
)

const (
	dbName        = "leadgen"
	leadsCol      = "leads"
	schemaCol     = "schema_columns"
	importLogsCol = "import_logs"
	mappingCol    = "mapping_events"
)

// ErrDuplicateLead is returned when an insert collides with the unique
// lead_id index.
var ErrDuplicateLead = errors.New("store: duplicate lead")

// ErrNotFound is returned when a lead id does not exist.
var ErrNotFound = errors.New("store: not found")

// Client wraps a MongoDB client.
type Client struct {
	mc  *mongo.Client
	mdb *mongo.Database
}

// New connects to MongoDB, ensures indices and seeds the default schema.
func New(ctx context.Context, uri string) (*Client, error) {
	mc, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("store: mongo connect: %w", err)
	}
	if err := mc.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("store: mongo ping: %w", err)
	}

	c := &Client{mc: mc, mdb: mc.Database(dbName)}
	if err := c.ensureIndices(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Disconnect cleanly closes the MongoDB connection.
func (c *Client) Disconnect(ctx context.Context) error {
	return c.mc.Disconnect(ctx)
}

// ensureIndices creates the lookup indices if missing.
func (c *Client) ensureIndices(ctx context.Context) error {
	lc := c.mdb.Collection(leadsCol)
	if _, err := lc.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "lead_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "email_norm", Value: 1}}},
		{Keys: bson.D{{Key: "phone_norm", Value: 1}}},
		{Keys: bson.D{{Key: "lead_status", Value: 1}, {Key: "date_added", Value: -1}}},
	}); err != nil {
		return fmt.Errorf("store: lead indices: %w", err)
	}

	ic := c.mdb.Collection(importLogsCol)
	if _, err := ic.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "created_at", Value: -1}},
	}); err != nil {
		return fmt.Errorf("store: import log indices: %w", err)
	}

	return nil
}

// ─── Schema ───────────────────────────────────────────────────────────────────

// SeedSchema inserts the given columns when the schema collection is empty.
func (c *Client) SeedSchema(ctx context.Context, cols []domain.SchemaColumn) error {
	sc := c.mdb.Collection(schemaCol)
	n, err := sc.CountDocuments(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("store: count schema: %w", err)
	}
	if n > 0 {
		return nil
	}
	docs := make([]any, len(cols))
	for i, col := range cols {
		docs[i] = col
	}
	if _, err := sc.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("store: seed schema: %w", err)
	}
	return nil
}

// SchemaColumns returns all canonical columns in schema order.
func (c *Client) SchemaColumns(ctx context.Context) ([]domain.SchemaColumn, error) {
	cursor, err := c.mdb.Collection(schemaCol).Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "position", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("store: load schema: %w", err)
	}
	defer cursor.Close(ctx)

	var cols []domain.SchemaColumn
	if err := cursor.All(ctx, &cols); err != nil {
		return nil, fmt.Errorf("store: decode schema: %w", err)
	}
	return cols, nil
}

// AddAlias appends a header alias to an existing canonical column.
func (c *Client) AddAlias(ctx context.Context, canonical, alias string) error {
	res, err := c.mdb.Collection(schemaCol).UpdateOne(ctx,
		bson.M{"_id": canonical},
		bson.M{"$addToSet": bson.M{"aliases": alias}},
	)
	if err != nil {
		return fmt.Errorf("store: add alias: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("store: add alias: column %q: %w", canonical, ErrNotFound)
	}
	return nil
}

// CreateColumn appends a new canonical column at the end of the schema.
func (c *Client) CreateColumn(ctx context.Context, col domain.SchemaColumn) error {
	sc := c.mdb.Collection(schemaCol)
	n, err := sc.CountDocuments(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("store: count schema: %w", err)
	}
	col.Position = int(n)
	if _, err := sc.InsertOne(ctx, col); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil // column already exists, treat as a no-op like the UI expects
		}
		return fmt.Errorf("store: create column: %w", err)
	}
	return nil
}

// SaveMappingEvent records one manual mapping decision.
func (c *Client) SaveMappingEvent(ctx context.Context, ev *domain.MappingEvent) error {
	ev.CreatedAt = time.Now().UTC()
	if _, err := c.mdb.Collection(mappingCol).InsertOne(ctx, ev); err != nil {
		return fmt.Errorf("store: save mapping event: %w", err)
	}
	return nil
}

// ─── Leads ────────────────────────────────────────────────────────────────────

// InsertLead inserts a new lead. Returns ErrDuplicateLead when the lead_id
// already exists (a concurrent import beat us to it).
func (c *Client) InsertLead(ctx context.Context, l *domain.Lead) error {
	now := time.Now().UTC()
	l.DateAdded = now
	l.DateUpdated = now
	if l.Status == "" {
		l.Status = domain.StatusActive
	}
	l.ID = primitive.NewObjectID().Hex()

	if _, err := c.mdb.Collection(leadsCol).InsertOne(ctx, l); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateLead
		}
		return fmt.Errorf("store: insert lead: %w", err)
	}
	return nil
}

// ExistsByEmail reports whether any lead has the given normalized email.
func (c *Client) ExistsByEmail(ctx context.Context, emailNorm string) (bool, error) {
	return c.exists(ctx, bson.M{"email_norm": emailNorm})
}

// ExistsByPhone reports whether any lead has the given normalized phone.
func (c *Client) ExistsByPhone(ctx context.Context, phoneNorm string) (bool, error) {
	return c.exists(ctx, bson.M{"phone_norm": phoneNorm})
}

func (c *Client) exists(ctx context.Context, filter bson.M) (bool, error) {
	err := c.mdb.Collection(leadsCol).FindOne(ctx, filter,
		options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: lead lookup: %w", err)
	}
	return true, nil
}

// ListOptions filters and paginates the leads listing.
type ListOptions struct {
	Status  string
	Search  string
	Page    int
	PerPage int
}

// ListLeads returns one page of leads, newest first. Search matches email,
// name or company name, case-insensitively.
func (c *Client) ListLeads(ctx context.Context, opt ListOptions) (*domain.LeadPage, error) {
	if opt.Page < 1 {
		opt.Page = 1
	}
	if opt.PerPage < 1 || opt.PerPage > 500 {
		opt.PerPage = 50
	}
	if opt.Status == "" {
		opt.Status = domain.StatusActive
	}

	filter := bson.M{"lead_status": opt.Status}
	if opt.Search != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(opt.Search), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"email": re},
			bson.M{"name": re},
			bson.M{"company_name": re},
		}
	}

	lc := c.mdb.Collection(leadsCol)
	total, err := lc.CountDocuments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("store: count leads: %w", err)
	}

	cursor, err := lc.Find(ctx, filter, options.Find().
		SetSort(bson.D{{Key: "date_added", Value: -1}}).
		SetSkip(int64((opt.Page-1)*opt.PerPage)).
		SetLimit(int64(opt.PerPage)))
	if err != nil {
		return nil, fmt.Errorf("store: list leads: %w", err)
	}
	defer cursor.Close(ctx)

	leads := []domain.Lead{}
	if err := cursor.All(ctx, &leads); err != nil {
		return nil, fmt.Errorf("store: decode leads: %w", err)
	}

	return &domain.LeadPage{
		Leads:      leads,
		Total:      total,
		Page:       opt.Page,
		PerPage:    opt.PerPage,
		TotalPages: int((total + int64(opt.PerPage) - 1) / int64(opt.PerPage)),
	}, nil
}

// GetLead fetches one lead by id. Returns ErrNotFound when missing.
func (c *Client) GetLead(ctx context.Context, id string) (*domain.Lead, error) {
	var l domain.Lead
	err := c.mdb.Collection(leadsCol).FindOne(ctx, bson.M{"_id": id}).Decode(&l)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get lead: %w", err)
	}
	return &l, nil
}

// UpdateLead patches a lead's status and/or processing notes.
func (c *Client) UpdateLead(ctx context.Context, id string, status, notes *string) error {
	set := bson.M{"date_updated": time.Now().UTC()}
	if status != nil {
		set["lead_status"] = *status
	}
	if notes != nil {
		set["processing_notes"] = *notes
	}
	res, err := c.mdb.Collection(leadsCol).UpdateOne(ctx,
		bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("store: update lead: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteLead removes a lead by id.
func (c *Client) DeleteLead(ctx context.Context, id string) error {
	res, err := c.mdb.Collection(leadsCol).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("store: delete lead: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// LeadsByStatus streams every lead with the given status, oldest first,
// for CSV export.
func (c *Client) LeadsByStatus(ctx context.Context, status string) ([]domain.Lead, error) {
	cursor, err := c.mdb.Collection(leadsCol).Find(ctx,
		bson.M{"lead_status": status},
		options.Find().SetSort(bson.D{{Key: "date_added", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("store: export leads: %w", err)
	}
	defer cursor.Close(ctx)

	var leads []domain.Lead
	if err := cursor.All(ctx, &leads); err != nil {
		return nil, fmt.Errorf("store: decode export: %w", err)
	}
	return leads, nil
}

// ─── Import logs & stats ──────────────────────────────────────────────────────

// SaveImportLog records the outcome of one processed file.
func (c *Client) SaveImportLog(ctx context.Context, log *domain.ImportLog) error {
	log.CreatedAt = time.Now().UTC()
	log.ID = primitive.NewObjectID().Hex()
	if _, err := c.mdb.Collection(importLogsCol).InsertOne(ctx, log); err != nil {
		return fmt.Errorf("store: save import log: %w", err)
	}
	return nil
}

// Stats aggregates the dashboard numbers: active lead count, duplicates
// skipped across all imports, imports today and the 7-day average success
// rate.
func (c *Client) Stats(ctx context.Context) (*domain.Stats, error) {
	active, err := c.mdb.Collection(leadsCol).CountDocuments(ctx,
		bson.M{"lead_status": domain.StatusActive})
	if err != nil {
		return nil, fmt.Errorf("store: count active: %w", err)
	}

	now := time.Now().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	weekAgo := now.Add(-7 * 24 * time.Hour)

	ic := c.mdb.Collection(importLogsCol)

	today, err := ic.CountDocuments(ctx, bson.M{"created_at": bson.M{"$gte": dayStart}})
	if err != nil {
		return nil, fmt.Errorf("store: count today imports: %w", err)
	}

	cursor, err := ic.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":        nil,
			"duplicates": bson.M{"$sum": "$duplicates_skipped"},
		}}},
	})
	if err != nil {
		return nil, fmt.Errorf("store: sum duplicates: %w", err)
	}
	var dupAgg []struct {
		Duplicates int `bson:"duplicates"`
	}
	if err := cursor.All(ctx, &dupAgg); err != nil {
		return nil, fmt.Errorf("store: decode duplicates: %w", err)
	}

	cursor, err = ic.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"created_at": bson.M{"$gte": weekAgo}}}},
		{{Key: "$group", Value: bson.M{
			"_id":  nil,
			"rate": bson.M{"$avg": "$success_rate"},
		}}},
	})
	if err != nil {
		return nil, fmt.Errorf("store: average success rate: %w", err)
	}
	var rateAgg []struct {
		Rate float64 `bson:"rate"`
	}
	if err := cursor.All(ctx, &rateAgg); err != nil {
		return nil, fmt.Errorf("store: decode success rate: %w", err)
	}

	stats := &domain.Stats{
		TotalLeads:   int(active),
		TodayImports: int(today),
	}
	if len(dupAgg) > 0 {
		stats.DuplicatesSkipped = dupAgg[0].Duplicates
	}
	if len(rateAgg) > 0 {
		stats.SuccessRate = round1(rateAgg[0].Rate)
	}
	return stats, nil
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}

