package database

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestMigrationFilesExist(t *testing.T) {
	migrationsDir := "../../migrations"

	// Check if migrations directory exists
	if _, err := os.Stat(migrationsDir); os.IsNotExist(err) {
		t.Fatal("Migrations directory does not exist")
	}

	// Expected migration files
	expectedMigrations := []string{
		"00001_create_users.sql",
		"00002_create_refresh_tokens.sql",
		"00003_create_products.sql",
		"00004_create_sales.sql",
		"00005_create_sale_items.sql",
	}

	for _, migration := range expectedMigrations {
		path := filepath.Join(migrationsDir, migration)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			t.Errorf("Migration file %s does not exist", migration)
		}
	}
}

func TestMigrationFilesHaveUpAndDown(t *testing.T) {
	migrationsDir := "../../migrations"

	files, err := os.ReadDir(migrationsDir)
	if err != nil {
		t.Fatalf("Failed to read migrations directory: %v", err)
	}

	sqlFileCount := 0
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".sql") {
			continue
		}

		sqlFileCount++
		content, err := os.ReadFile(filepath.Join(migrationsDir, file.Name()))
		if err != nil {
			t.Errorf("Failed to read migration file %s: %v", file.Name(), err)
			continue
		}

		contentStr := string(content)

		// Check for goose Up directive
		if !strings.Contains(contentStr, "-- +goose Up") {
			t.Errorf("Migration file %s missing '-- +goose Up' directive", file.Name())
		}

		// Check for goose Down directive
		if !strings.Contains(contentStr, "-- +goose Down") {
			t.Errorf("Migration file %s missing '-- +goose Down' directive", file.Name())
		}
	}

	if sqlFileCount == 0 {
		t.Error("No SQL migration files found")
	}
}

func TestMigrationFilesCreateExpectedTables(t *testing.T) {
	migrationsDir := "../../migrations"

	expectedTables := map[string]string{
		"users":          "00001_create_users.sql",
		"refresh_tokens": "00002_create_refresh_tokens.sql",
		"products":       "00003_create_products.sql",
		"sales":          "00004_create_sales.sql",
		"sale_items":     "00005_create_sale_items.sql",
	}

	for tableName, migrationFile := range expectedTables {
		path := filepath.Join(migrationsDir, migrationFile)
		content, err := os.ReadFile(path)
		if err != nil {
			t.Errorf("Failed to read migration file %s: %v", migrationFile, err)
			continue
		}

		contentStr := string(content)

		// Check if migration creates the table
		createTableStmt := "CREATE TABLE " + tableName
		if !strings.Contains(contentStr, createTableStmt) {
			t.Errorf("Migration file %s does not create table %s", migrationFile, tableName)
		}

		// Check if migration has drop table in down section
		dropTableStmt := "DROP TABLE " + tableName
		if !strings.Contains(contentStr, dropTableStmt) {
			t.Errorf("Migration file %s does not drop table %s in down section", migrationFile, tableName)
		}
	}
}

func TestUsersTableHasRoleConstraint(t *testing.T) {
	migrationsDir := "../../migrations"
	path := filepath.Join(migrationsDir, "00001_create_users.sql")

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read users migration: %v", err)
	}

	contentStr := string(content)
	for _, role := range []string{"seller", "manager"} {
		if !strings.Contains(contentStr, role) {
			t.Errorf("Users table role constraint missing value: %s", role)
		}
	}
	if !strings.Contains(contentStr, "email TEXT NOT NULL UNIQUE") {
		t.Error("Users table missing unique email constraint")
	}
}

func TestProductsTableGuardsStockAndBarcode(t *testing.T) {
	migrationsDir := "../../migrations"
	path := filepath.Join(migrationsDir, "00003_create_products.sql")

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read products migration: %v", err)
	}

	contentStr := string(content)

	// Non-negative stock is enforced in the schema, not just application code
	if !strings.Contains(contentStr, "CHECK (stock >= 0)") {
		t.Error("Products table missing non-negative stock constraint")
	}
	if !strings.Contains(contentStr, "barcode TEXT UNIQUE") {
		t.Error("Products table missing unique barcode constraint")
	}
	if !strings.Contains(contentStr, "CHECK (price >= 0)") {
		t.Error("Products table missing non-negative price constraint")
	}
}

func TestSalesTableHasMethodAndStatusConstraints(t *testing.T) {
	migrationsDir := "../../migrations"
	path := filepath.Join(migrationsDir, "00004_create_sales.sql")

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read sales migration: %v", err)
	}

	contentStr := string(content)
	for _, method := range []string{"cash", "card", "pix"} {
		if !strings.Contains(contentStr, method) {
			t.Errorf("Sales table payment_method constraint missing value: %s", method)
		}
	}
	for _, status := range []string{"finalized", "cancelled"} {
		if !strings.Contains(contentStr, status) {
			t.Errorf("Sales table status constraint missing value: %s", status)
		}
	}
}

func TestSaleItemsTableReferencesSalesAndProducts(t *testing.T) {
	migrationsDir := "../../migrations"
	path := filepath.Join(migrationsDir, "00005_create_sale_items.sql")

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read sale_items migration: %v", err)
	}

	contentStr := string(content)
	if !strings.Contains(contentStr, "REFERENCES sales (id)") {
		t.Error("Sale items table missing foreign key to sales")
	}
	if !strings.Contains(contentStr, "REFERENCES products (id)") {
		t.Error("Sale items table missing foreign key to products")
	}
	if !strings.Contains(contentStr, "CHECK (quantity > 0)") {
		t.Error("Sale items table missing positive quantity constraint")
	}
}
