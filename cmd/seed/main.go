package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/kiwari-pos/tablepos/internal/catalog"
	"github.com/kiwari-pos/tablepos/internal/config"
	"github.com/kiwari-pos/tablepos/internal/enum"
	"github.com/kiwari-pos/tablepos/internal/logger"
	"golang.org/x/crypto/bcrypt"
)

const (
	profileName = "Main Hall"
	companyName = "Kiwari Dining"
	priceList   = "Standard Selling"
)

type seedItem struct {
	code, name, barcode, rate string
}

var (
	paymentModes = []struct{ mode, account string }{
		{"Cash", "Cash - KD"},
		{"Card", "Bank - KD"},
	}
	tables = []string{"T1", "T2", "T3", "T4", "T5", "T6"}
	items  = []seedItem{
		{"NSB-AYM", "Nasi Bakar Ayam", "8991002100011", "28000"},
		{"NSB-CKL", "Nasi Bakar Cakalang", "8991002100028", "32000"},
		{"ES-TEH", "Es Teh Manis", "8991002100035", "8000"},
		{"KOPI-SS", "Kopi Susu", "8991002100042", "18000"},
	}
)

func main() {
	email := flag.String("email", "", "Manager email address")
	password := flag.String("password", "", "Manager password")
	name := flag.String("name", "", "Manager full name")
	flag.Parse()

	_ = godotenv.Load()
	log := logger.New(logger.Options{ServiceName: "tablepos-seed", Format: "console"})
	ctx := context.Background()

	if *email == "" {
		*email = os.Getenv("SEED_EMAIL")
	}
	if *password == "" {
		*password = os.Getenv("SEED_PASSWORD")
	}
	if *name == "" {
		*name = os.Getenv("SEED_NAME")
	}
	if *email == "" {
		*email = "manager@kiwari.com"
	}
	if *password == "" {
		*password = "password123"
		log.Warn(ctx, "using default password 'password123'; change it before going live")
	}
	if *name == "" {
		*name = "Kiwari Manager"
	}

	cfg, err := config.Load()
	if err != nil {
		log.Error(ctx, "load config", err)
		os.Exit(1)
	}

	pool, err := pgxpool.New(ctx, cfg.DB.URL)
	if err != nil {
		log.Error(ctx, "connect database", err)
		os.Exit(1)
	}
	defer pool.Close()

	userID, err := seed(ctx, pool, log, *email, *password, *name)
	if err != nil {
		log.Error(ctx, "seed failed", err)
		pool.Close()
		os.Exit(1)
	}
	if cfg.Redis.Enabled() {
		if err := forgetCachedItems(ctx, cfg.Redis); err != nil {
			log.Warn(log.WithField(ctx, "error", err.Error()), "item cache not cleared; stale prices expire with the cache ttl")
		}
	}

	log.Info(log.WithFields(ctx, map[string]any{
		"profile": profileName,
		"user_id": userID.String(),
	}), "seed completed")
}

// seed writes everything in one transaction; existing rows are left as they are.
func seed(ctx context.Context, pool *pgxpool.Pool, log *logger.Logger, email, password, fullName string) (uuid.UUID, error) {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO pos_profiles (name, company, price_list) VALUES ($1, $2, $3)
		ON CONFLICT (name) DO NOTHING`, profileName, companyName, priceList); err != nil {
		return uuid.Nil, fmt.Errorf("insert profile: %w", err)
	}
	for i, pm := range paymentModes {
		if _, err := tx.Exec(ctx, `
			INSERT INTO profile_payment_modes (profile_name, mode_of_payment, account, position)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT DO NOTHING`, profileName, pm.mode, pm.account, i); err != nil {
			return uuid.Nil, fmt.Errorf("insert payment mode %s: %w", pm.mode, err)
		}
	}
	if _, err := tx.Exec(ctx, `INSERT INTO customers (name) VALUES ($1) ON CONFLICT DO NOTHING`, enum.DefaultCustomer); err != nil {
		return uuid.Nil, fmt.Errorf("insert customer: %w", err)
	}
	for i, t := range tables {
		if _, err := tx.Exec(ctx, `
			INSERT INTO restaurant_tables (name, position) VALUES ($1, $2)
			ON CONFLICT (name) DO NOTHING`, t, i); err != nil {
			return uuid.Nil, fmt.Errorf("insert table %s: %w", t, err)
		}
	}
	for _, it := range items {
		if err := seedItemRows(ctx, tx, it); err != nil {
			return uuid.Nil, err
		}
	}

	userID, err := seedManager(ctx, tx, log, email, password, fullName)
	if err != nil {
		return uuid.Nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("commit: %w", err)
	}
	return userID, nil
}

// forgetCachedItems drops cached lookups for the seeded codes and barcodes,
// since lookups are cached under whichever code was scanned.
func forgetCachedItems(ctx context.Context, cfg config.RedisConfig) error {
	cache, err := catalog.NewRedisCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer cache.Close()

	codes := make([]string, 0, 2*len(items))
	for _, it := range items {
		codes = append(codes, it.code, it.barcode)
	}
	return cache.Forget(ctx, priceList, codes...)
}

func seedItemRows(ctx context.Context, tx pgx.Tx, it seedItem) error {
	if _, err := tx.Exec(ctx, `
		INSERT INTO items (code, name, standard_rate) VALUES ($1, $2, $3)
		ON CONFLICT (code) DO NOTHING`, it.code, it.name, it.rate); err != nil {
		return fmt.Errorf("insert item %s: %w", it.code, err)
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO item_barcodes (barcode, item_code) VALUES ($1, $2)
		ON CONFLICT (barcode) DO NOTHING`, it.barcode, it.code); err != nil {
		return fmt.Errorf("insert barcode %s: %w", it.barcode, err)
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO item_prices (price_list, item_code, rate) VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING`, priceList, it.code, it.rate); err != nil {
		return fmt.Errorf("insert price %s: %w", it.code, err)
	}
	return nil
}

// seedManager creates the manager account unless the email is taken.
func seedManager(ctx context.Context, tx pgx.Tx, log *logger.Logger, email, password, fullName string) (uuid.UUID, error) {
	var existingID uuid.UUID
	err := tx.QueryRow(ctx, `SELECT id FROM users WHERE email = $1 LIMIT 1`, email).Scan(&existingID)
	if err == nil {
		log.Info(log.WithField(ctx, "email", email), "user already exists, skipping")
		return existingID, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, fmt.Errorf("check user: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return uuid.Nil, fmt.Errorf("hash password: %w", err)
	}

	var newID uuid.UUID
	err = tx.QueryRow(ctx, `
		INSERT INTO users (profile_name, email, hashed_password, full_name, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`, profileName, email, string(hashed), fullName, enum.UserRoleManager).Scan(&newID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert user: %w", err)
	}
	log.Info(log.WithField(ctx, "email", email), "created manager user")
	return newID, nil
}
