// Command csvload seeds the database from CSV exports. Files are loaded in
// dependency order so foreign keys resolve; rows that already exist are
// skipped, which makes the loader safe to re-run.
package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gorm.io/gorm"

	"reviewhub/database"
	"reviewhub/internal/api/models"
	"reviewhub/internal/config"
)

// Load order matters: titles need categories, reviews need users and titles.
var tableOrder = []string{"users", "category", "genre", "titles", "genre_title", "review", "comments"}

type loader struct {
	db     *gorm.DB
	dir    string
	logger *slog.Logger

	// CSV rows reference each other by their export ids. Users get fresh
	// UUIDs on insert, so every cross-file reference goes through these maps.
	userIDs   map[string]string
	titleIDs  map[string]int64
	genreIDs  map[string]int64
	reviewIDs map[string]int64
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("could not load config", "error", err)
		os.Exit(1)
	}

	db, err := database.ConnectDB(cfg, logger)
	if err != nil {
		logger.Error("database connection failed", "error", err)
		os.Exit(1)
	}

	dir := cfg.CSVDataPath
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	l := &loader{
		db:        db,
		dir:       dir,
		logger:    logger,
		userIDs:   make(map[string]string),
		titleIDs:  make(map[string]int64),
		genreIDs:  make(map[string]int64),
		reviewIDs: make(map[string]int64),
	}

	for _, table := range tableOrder {
		if err := l.load(table); err != nil {
			logger.Error("load failed", "table", table, "error", err)
			os.Exit(1)
		}
	}
	logger.Info("all tables loaded", "dir", dir)
}

func (l *loader) load(table string) error {
	rows, err := parseCSV(filepath.Join(l.dir, table+".csv"))
	if err != nil {
		if os.IsNotExist(err) {
			l.logger.Warn("file not found, skipping", "table", table)
			return nil
		}
		return err
	}

	var loadFn func(map[string]string) error
	switch table {
	case "users":
		loadFn = l.createUser
	case "category":
		loadFn = l.createCategory
	case "genre":
		loadFn = l.createGenre
	case "titles":
		loadFn = l.createTitle
	case "genre_title":
		loadFn = l.linkGenreTitle
	case "review":
		loadFn = l.createReview
	case "comments":
		loadFn = l.createComment
	default:
		return fmt.Errorf("unknown table %q", table)
	}

	loaded := 0
	for _, row := range rows {
		if err := loadFn(row); err != nil {
			return fmt.Errorf("row id=%s: %w", row["id"], err)
		}
		loaded++
	}
	l.logger.Info("table loaded", "table", table, "rows", loaded)
	return nil
}

// parseCSV reads the whole file as a slice of header-keyed records.
func parseCSV(path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	var rows []map[string]string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		row := make(map[string]string, len(header))
		for i, key := range header {
			if i < len(record) {
				row[key] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (l *loader) createUser(row map[string]string) error {
	user := models.User{
		Username:  row["username"],
		Email:     row["email"],
		Role:      row["role"],
		Bio:       row["bio"],
		FirstName: row["first_name"],
		LastName:  row["last_name"],
	}
	if err := l.db.Where(models.User{Username: user.Username}).FirstOrCreate(&user).Error; err != nil {
		return err
	}
	l.userIDs[row["id"]] = user.ID
	return nil
}

func (l *loader) createCategory(row map[string]string) error {
	category := models.Category{Name: row["name"], Slug: row["slug"]}
	return l.db.Where(models.Category{Slug: category.Slug}).FirstOrCreate(&category).Error
}

func (l *loader) createGenre(row map[string]string) error {
	genre := models.Genre{Name: row["name"], Slug: row["slug"]}
	if err := l.db.Where(models.Genre{Slug: genre.Slug}).FirstOrCreate(&genre).Error; err != nil {
		return err
	}
	l.genreIDs[row["id"]] = genre.ID
	return nil
}

func (l *loader) createTitle(row map[string]string) error {
	year, err := strconv.Atoi(row["year"])
	if err != nil {
		return fmt.Errorf("invalid year %q: %w", row["year"], err)
	}

	// The export references the category by its row id, which matches the
	// autoincrement ids category.csv was loaded with.
	categoryID, err := strconv.ParseInt(row["category"], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid category id %q: %w", row["category"], err)
	}
	var category models.Category
	if err := l.db.First(&category, categoryID).Error; err != nil {
		l.logger.Warn("title references unknown category, skipping", "title", row["name"], "category_id", categoryID)
		return nil
	}

	title := models.Title{Name: row["name"], Year: year, CategoryID: category.ID}
	if err := l.db.Where(models.Title{Name: title.Name, Year: year}).FirstOrCreate(&title).Error; err != nil {
		return err
	}
	l.titleIDs[row["id"]] = title.ID
	return nil
}

func (l *loader) linkGenreTitle(row map[string]string) error {
	titleID, ok := l.titleIDs[row["title_id"]]
	if !ok {
		l.logger.Warn("link references unknown title, skipping", "title_id", row["title_id"])
		return nil
	}
	genreID, ok := l.genreIDs[row["genre_id"]]
	if !ok {
		l.logger.Warn("link references unknown genre, skipping", "genre_id", row["genre_id"])
		return nil
	}

	title := models.Title{ID: titleID}
	return l.db.Model(&title).Association("Genres").Append(&models.Genre{ID: genreID})
}

func (l *loader) createReview(row map[string]string) error {
	titleID, ok := l.titleIDs[row["title_id"]]
	if !ok {
		l.logger.Warn("review references unknown title, skipping", "title_id", row["title_id"])
		return nil
	}
	authorID, ok := l.userIDs[row["author"]]
	if !ok {
		l.logger.Warn("review references unknown author, skipping", "author", row["author"])
		return nil
	}

	var score *int
	if row["score"] != "" {
		v, err := strconv.Atoi(row["score"])
		if err != nil {
			return fmt.Errorf("invalid score %q: %w", row["score"], err)
		}
		score = &v
	}
	pubDate, err := parsePubDate(row["pub_date"])
	if err != nil {
		return err
	}

	review := models.Review{
		Text:     row["text"],
		AuthorID: authorID,
		TitleID:  titleID,
		Score:    score,
		PubDate:  pubDate,
	}
	err = l.db.Where(models.Review{AuthorID: authorID, TitleID: titleID}).FirstOrCreate(&review).Error
	if err != nil {
		return err
	}
	l.reviewIDs[row["id"]] = review.ID
	return nil
}

func (l *loader) createComment(row map[string]string) error {
	reviewID, ok := l.reviewIDs[row["review_id"]]
	if !ok {
		l.logger.Warn("comment references unknown review, skipping", "review_id", row["review_id"])
		return nil
	}
	authorID, ok := l.userIDs[row["author"]]
	if !ok {
		l.logger.Warn("comment references unknown author, skipping", "author", row["author"])
		return nil
	}
	pubDate, err := parsePubDate(row["pub_date"])
	if err != nil {
		return err
	}

	comment := models.Comment{
		Text:     row["text"],
		AuthorID: authorID,
		ReviewID: reviewID,
		PubDate:  pubDate,
	}
	return l.db.Where(models.Comment{AuthorID: authorID, ReviewID: reviewID, Text: comment.Text}).
		FirstOrCreate(&comment).Error
}

func parsePubDate(s string) (time.Time, error) {
	if s == "" {
		return time.Now().UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid pub_date %q: %w", s, err)
	}
	return t, nil
}
