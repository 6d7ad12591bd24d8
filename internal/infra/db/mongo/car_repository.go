package mongo

import (
	"context"
	"errors"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domaincatalog "rentcars/internal/domain/catalog"
	"rentcars/internal/domain/shared/money"
)

type CarRepository struct {
	col *mongo.Collection
}

func NewCarRepository(ctx context.Context, db *mongo.Database) (*CarRepository, error) {
	col := db.Collection("cars")
	_, err := col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "available", Value: 1}, {Key: "price_cents", Value: 1}}},
		{Keys: bson.D{{Key: "category", Value: 1}}},
	})
	if err != nil {
		return nil, wrapErr(err)
	}
	return &CarRepository{col: col}, nil
}

func (r *CarRepository) ByID(ctx context.Context, id domaincatalog.CarID) (*domaincatalog.Car, error) {
	var doc carDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domaincatalog.ErrCarNotFound
		}
		return nil, wrapErr(err)
	}
	return doc.toAggregate(), nil
}

func (r *CarRepository) Save(ctx context.Context, car *domaincatalog.Car) error {
	doc := newCarDocument(car)
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	return wrapErr(err)
}

func (r *CarRepository) List(ctx context.Context, params domaincatalog.ListParams) (domaincatalog.ListResult, error) {
	opts := params.Normalized()
	filter := bson.M{}
	if opts.OnlyAvailable {
		filter["available"] = true
	}
	if opts.Location != "" {
		filter["location"] = bson.M{"$regex": regexp.QuoteMeta(opts.Location), "$options": "i"}
	}
	if opts.Category != "" {
		filter["category"] = opts.Category
	}
	price := bson.M{}
	if opts.PriceMinCents > 0 {
		price["$gte"] = opts.PriceMinCents
	}
	if opts.PriceMaxCents > 0 {
		price["$lte"] = opts.PriceMaxCents
	}
	if len(price) > 0 {
		filter["price_cents"] = price
	}

	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return domaincatalog.ListResult{}, wrapErr(err)
	}
	findOpts := options.Find().
		SetSort(bson.D{{Key: "price_cents", Value: 1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(opts.Offset)).
		SetLimit(int64(opts.Limit))
	cur, err := r.col.Find(ctx, filter, findOpts)
	if err != nil {
		return domaincatalog.ListResult{}, wrapErr(err)
	}
	var docs []carDocument
	if err := cur.All(ctx, &docs); err != nil {
		return domaincatalog.ListResult{}, wrapErr(err)
	}
	items := make([]*domaincatalog.Car, 0, len(docs))
	for _, d := range docs {
		items = append(items, d.toAggregate())
	}
	return domaincatalog.ListResult{Items: items, Total: int(total)}, nil
}

type carDocument struct {
	ID           string `bson:"_id"`
	Owner        string `bson:"owner_id,omitempty"`
	Make         string `bson:"make"`
	Model        string `bson:"model"`
	Year         int    `bson:"year,omitempty"`
	Category     string `bson:"category,omitempty"`
	Seats        int    `bson:"seats,omitempty"`
	Transmission string `bson:"transmission,omitempty"`
	Location     string `bson:"location,omitempty"`
	PriceCents   int64  `bson:"price_cents"`
	Currency     string `bson:"currency"`
	Available    bool   `bson:"available"`
	ThumbnailURL string `bson:"thumbnail_url,omitempty"`
	CreatedAt    int64  `bson:"created_at"`
	UpdatedAt    int64  `bson:"updated_at"`
}

func newCarDocument(c *domaincatalog.Car) carDocument {
	return carDocument{
		ID:           string(c.ID),
		Owner:        string(c.Owner),
		Make:         c.Make,
		Model:        c.Model,
		Year:         c.Year,
		Category:     c.Category,
		Seats:        c.Seats,
		Transmission: c.Transmission,
		Location:     c.Location,
		PriceCents:   c.PricePerDay.Amount,
		Currency:     c.PricePerDay.Currency,
		Available:    c.Available,
		ThumbnailURL: c.ThumbnailURL,
		CreatedAt:    c.CreatedAt.UnixMilli(),
		UpdatedAt:    c.UpdatedAt.UnixMilli(),
	}
}

func (d carDocument) toAggregate() *domaincatalog.Car {
	return &domaincatalog.Car{
		ID:           domaincatalog.CarID(d.ID),
		Owner:        domaincatalog.OwnerID(d.Owner),
		Make:         d.Make,
		Model:        d.Model,
		Year:         d.Year,
		Category:     d.Category,
		Seats:        d.Seats,
		Transmission: d.Transmission,
		Location:     d.Location,
		PricePerDay:  money.Money{Amount: d.PriceCents, Currency: d.Currency},
		Available:    d.Available,
		ThumbnailURL: d.ThumbnailURL,
		CreatedAt:    timestampToTime(d.CreatedAt),
		UpdatedAt:    timestampToTime(d.UpdatedAt),
	}
}

var _ domaincatalog.Repository = (*CarRepository)(nil)
