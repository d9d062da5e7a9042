package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/mosaicgrove/storefront/internal/domain"
	"github.com/mosaicgrove/storefront/internal/matcher"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	cartItemsCollection = "cart_items"
	wishlistCollection  = "wishlist_items"
)

type variationDoc struct {
	Name    string   `bson:"name"`
	Options []string `bson:"options"`
}

// productDoc mirrors domain.Product with the price kept as a decimal string.
type productDoc struct {
	ID             string         `bson:"id"`
	Name           string         `bson:"name"`
	Description    string         `bson:"description,omitempty"`
	Price          string         `bson:"price"`
	ImageURL       string         `bson:"image_url,omitempty"`
	CategoryID     string         `bson:"category_id,omitempty"`
	InventoryCount int            `bson:"inventory_count"`
	IsFeatured     bool           `bson:"is_featured"`
	WeightOptions  []float64      `bson:"weight_options,omitempty"`
	WeightUnit     string         `bson:"weight_unit,omitempty"`
	Variations     []variationDoc `bson:"variations,omitempty"`
}

type cartItemDoc struct {
	ID         string            `bson:"_id"`
	UserID     string            `bson:"user_id"`
	ProductID  string            `bson:"product_id"`
	ConfigKey  string            `bson:"config_key"`
	Product    productDoc        `bson:"product"`
	Quantity   int               `bson:"quantity"`
	Variations map[string]string `bson:"selected_variations"`
	Weight     *float64          `bson:"selected_weight"`
	CreatedAt  time.Time         `bson:"created_at"`
	UpdatedAt  time.Time         `bson:"updated_at"`
}

type wishlistDoc struct {
	UserID    string     `bson:"user_id"`
	ProductID string     `bson:"product_id"`
	Product   productDoc `bson:"product"`
	CreatedAt time.Time  `bson:"created_at"`
}

func toProductDoc(p domain.Product) productDoc {
	doc := productDoc{
		ID:             string(domain.CanonicalID(p.ID)),
		Name:           p.Name,
		Description:    p.Description,
		Price:          p.Price.String(),
		ImageURL:       p.ImageURL,
		CategoryID:     p.CategoryID,
		InventoryCount: p.InventoryCount,
		IsFeatured:     p.IsFeatured,
		WeightOptions:  p.WeightOptions,
		WeightUnit:     p.WeightUnit,
	}
	for _, g := range p.Variations {
		doc.Variations = append(doc.Variations, variationDoc{Name: g.Name, Options: g.Options})
	}
	return doc
}

func (d productDoc) toDomain() (domain.Product, error) {
	price, err := decimal.NewFromString(d.Price)
	if err != nil {
		return domain.Product{}, fmt.Errorf("invalid price %q: %w", d.Price, err)
	}
	p := domain.Product{
		ID:             domain.CanonicalID(d.ID),
		Name:           d.Name,
		Description:    d.Description,
		Price:          price,
		ImageURL:       d.ImageURL,
		CategoryID:     d.CategoryID,
		InventoryCount: d.InventoryCount,
		IsFeatured:     d.IsFeatured,
		WeightOptions:  d.WeightOptions,
		WeightUnit:     d.WeightUnit,
	}
	for _, g := range d.Variations {
		p.Variations = append(p.Variations, domain.VariationGroup{Name: g.Name, Options: g.Options})
	}
	return p, nil
}

// MongoRepository stores one document per cart line and one per wishlist
// entry, both scoped by user_id.
type MongoRepository struct {
	cartItems *mongo.Collection
	wishlist  *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{
		cartItems: db.Collection(cartItemsCollection),
		wishlist:  db.Collection(wishlistCollection),
	}
}

func (m *MongoRepository) LoadCart(ctx context.Context, userID string) ([]domain.CartLine, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := m.cartItems.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find cart items: %w", err)
	}
	defer cursor.Close(ctx)

	var lines []domain.CartLine
	for cursor.Next(ctx) {
		var doc cartItemDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode cart item: %w", err)
		}
		product, err := doc.Product.toDomain()
		if err != nil {
			return nil, fmt.Errorf("cart item %s: %w", doc.ID, err)
		}
		lines = append(lines, domain.CartLine{
			ID:        doc.ID,
			Product:   product,
			Quantity:  doc.Quantity,
			Variation: domain.CloneVariation(doc.Variations),
			Weight:    doc.Weight,
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return lines, nil
}

func (m *MongoRepository) LoadWishlist(ctx context.Context, userID string) ([]domain.WishlistEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "product_id", Value: 1}})
	cursor, err := m.wishlist.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find wishlist items: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []domain.WishlistEntry
	for cursor.Next(ctx) {
		var doc wishlistDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode wishlist item: %w", err)
		}
		product, err := doc.Product.toDomain()
		if err != nil {
			return nil, fmt.Errorf("wishlist item %s: %w", doc.ProductID, err)
		}
		entries = append(entries, domain.WishlistEntry{Product: product})
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return entries, nil
}

func (m *MongoRepository) UpsertLine(ctx context.Context, userID string, line domain.CartLine) error {
	now := time.Now()
	filter := bson.M{
		"user_id":    userID,
		"product_id": string(domain.CanonicalID(line.ProductID())),
		"config_key": matcher.Key(line.Variation, line.Weight),
	}
	update := bson.M{
		"$set": bson.M{
			"quantity":   line.Quantity,
			"product":    toProductDoc(line.Product),
			"updated_at": now,
		},
		"$setOnInsert": bson.M{
			"_id":                 line.ID,
			"selected_variations": domain.CloneVariation(line.Variation),
			"selected_weight":     line.Weight,
			"created_at":          now,
		},
	}

	_, err := m.cartItems.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert cart item: %w", err)
	}
	return nil
}

func (m *MongoRepository) DeleteLine(ctx context.Context, userID string, line domain.CartLine) error {
	filter := bson.M{
		"user_id":    userID,
		"product_id": string(domain.CanonicalID(line.ProductID())),
		"config_key": matcher.Key(line.Variation, line.Weight),
	}
	_, err := m.cartItems.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to delete cart item: %w", err)
	}
	return nil
}

func (m *MongoRepository) DeleteProductLines(ctx context.Context, userID string, productID domain.ProductID) error {
	filter := bson.M{"user_id": userID, "product_id": string(domain.CanonicalID(productID))}
	if _, err := m.cartItems.DeleteMany(ctx, filter); err != nil {
		return fmt.Errorf("failed to delete product cart items: %w", err)
	}
	return nil
}

func (m *MongoRepository) DeleteCart(ctx context.Context, userID string) error {
	if _, err := m.cartItems.DeleteMany(ctx, bson.M{"user_id": userID}); err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return nil
}

func (m *MongoRepository) AddWishlistEntry(ctx context.Context, userID string, entry domain.WishlistEntry) error {
	productID := string(domain.CanonicalID(entry.ProductID()))
	filter := bson.M{"user_id": userID, "product_id": productID}
	update := bson.M{
		"$setOnInsert": bson.M{
			"product":    toProductDoc(entry.Product),
			"created_at": time.Now(),
		},
	}

	_, err := m.wishlist.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to add wishlist item: %w", err)
	}
	return nil
}

func (m *MongoRepository) RemoveWishlistEntry(ctx context.Context, userID string, productID domain.ProductID) error {
	filter := bson.M{"user_id": userID, "product_id": string(domain.CanonicalID(productID))}
	if _, err := m.wishlist.DeleteOne(ctx, filter); err != nil {
		return fmt.Errorf("failed to remove wishlist item: %w", err)
	}
	return nil
}

func (m *MongoRepository) CreateIndexes(ctx context.Context) error {
	cartIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "product_id", Value: 1},
				{Key: "config_key", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(90 * 24 * 60 * 60), // 90 days TTL
		},
	}
	if _, err := m.cartItems.Indexes().CreateMany(ctx, cartIndexes); err != nil {
		return fmt.Errorf("failed to create cart indexes: %w", err)
	}

	wishlistIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "product_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := m.wishlist.Indexes().CreateOne(ctx, wishlistIndex); err != nil {
		return fmt.Errorf("failed to create wishlist indexes: %w", err)
	}
	return nil
}
