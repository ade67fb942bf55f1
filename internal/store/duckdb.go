// Tiggy Advisor - Conversational Course Recommendation Engine
// Copyright 2026 Tiggy Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tiggyapp/advisor

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/goccy/go-json"

	"github.com/tiggyapp/advisor/internal/logging"
	"github.com/tiggyapp/advisor/internal/models"
)

// DuckDBStore implements CourseStore and ProfileStore on an embedded
// DuckDB database. Variable-length fields (distributions, embeddings,
// completed-course maps) are stored as JSON text columns.
type DuckDBStore struct {
	conn *sql.DB
}

// OpenDuckDB opens (or creates) the DuckDB database at path and applies
// the schema. An empty path opens an in-memory database, used by tests.
func OpenDuckDB(path string) (*DuckDBStore, error) {
	if path == "" {
		path = ":memory:"
	}

	// Disable auto-install/auto-load of extensions to avoid network
	// access in restricted environments.
	connStr := path + "?access_mode=read_write&autoinstall_known_extensions=false&autoload_known_extensions=false"

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &DuckDBStore{conn: conn}
	if err := s.initSchema(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	logging.Info().Str("path", path).Msg("DuckDB store opened")
	return s, nil
}

// Close closes the underlying connection.
func (s *DuckDBStore) Close() error {
	return s.conn.Close()
}

func (s *DuckDBStore) initSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS courses (
			id            VARCHAR PRIMARY KEY,
			code          VARCHAR NOT NULL,
			title         VARCHAR NOT NULL,
			description   VARCHAR,
			credits       DOUBLE DEFAULT 1.0,
			distributions VARCHAR,
			schedule      VARCHAR,
			instructor    VARCHAR,
			format        VARCHAR,
			embedding     VARCHAR
		)`,
		`CREATE TABLE IF NOT EXISTS profiles (
			id                      VARCHAR PRIMARY KEY,
			class_year              VARCHAR,
			concentration           VARCHAR,
			completed_courses       VARCHAR,
			remaining_distributions VARCHAR,
			favorite_classes        VARCHAR
		)`,
		`CREATE INDEX IF NOT EXISTS idx_courses_code ON courses (code)`,
	}
	for _, stmt := range stmts {
		if _, err := s.conn.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:30], err)
		}
	}
	return nil
}

// ListCourses returns every course of the current term.
func (s *DuckDBStore) ListCourses(ctx context.Context) ([]models.Course, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, code, title, description, credits, distributions,
		       schedule, instructor, format, embedding
		FROM courses
		ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("query courses: %w", err)
	}
	defer rows.Close()

	var courses []models.Course
	for rows.Next() {
		var (
			c                            models.Course
			description, schedule        sql.NullString
			instructor, format           sql.NullString
			distributionsJSON, embedJSON sql.NullString
		)
		err := rows.Scan(&c.ID, &c.Code, &c.Title, &description, &c.Credits,
			&distributionsJSON, &schedule, &instructor, &format, &embedJSON)
		if err != nil {
			return nil, fmt.Errorf("scan course: %w", err)
		}

		c.Description = description.String
		c.Schedule = schedule.String
		c.Instructor = instructor.String
		c.Format = format.String

		if distributionsJSON.Valid && distributionsJSON.String != "" {
			if err := json.Unmarshal([]byte(distributionsJSON.String), &c.Distributions); err != nil {
				return nil, fmt.Errorf("unmarshal distributions for %s: %w", c.ID, err)
			}
		}
		if embedJSON.Valid && embedJSON.String != "" {
			if err := json.Unmarshal([]byte(embedJSON.String), &c.Embedding); err != nil {
				return nil, fmt.Errorf("unmarshal embedding for %s: %w", c.ID, err)
			}
		}

		courses = append(courses, c)
	}
	return courses, rows.Err()
}

// ReplaceCourses atomically replaces the catalog contents in a single
// transaction.
func (s *DuckDBStore) ReplaceCourses(ctx context.Context, courses []models.Course) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM courses`); err != nil {
		return fmt.Errorf("clear courses: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO courses (id, code, title, description, credits,
			distributions, schedule, instructor, format, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i := range courses {
		c := &courses[i]

		distributionsJSON, err := json.Marshal(c.Distributions)
		if err != nil {
			return fmt.Errorf("marshal distributions for %s: %w", c.ID, err)
		}
		embedJSON, err := json.Marshal(c.Embedding)
		if err != nil {
			return fmt.Errorf("marshal embedding for %s: %w", c.ID, err)
		}

		_, err = stmt.ExecContext(ctx, c.ID, c.Code, c.Title, c.Description,
			c.Credits, string(distributionsJSON), c.Schedule, c.Instructor,
			c.Format, string(embedJSON))
		if err != nil {
			return fmt.Errorf("insert course %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// GetProfile returns the profile for the given user ID, or ErrNotFound.
func (s *DuckDBStore) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	row := s.conn.QueryRowContext(ctx, `
		SELECT id, class_year, concentration, completed_courses,
		       remaining_distributions, favorite_classes
		FROM profiles WHERE id = ?`, userID)

	var (
		p                        models.UserProfile
		classYear, concentration sql.NullString
		completedJSON            sql.NullString
		remainingJSON            sql.NullString
		favoritesJSON            sql.NullString
	)
	err := row.Scan(&p.ID, &classYear, &concentration, &completedJSON,
		&remainingJSON, &favoritesJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan profile: %w", err)
	}

	p.ClassYear = classYear.String
	p.Concentration = concentration.String

	if completedJSON.Valid && completedJSON.String != "" {
		if err := json.Unmarshal([]byte(completedJSON.String), &p.CompletedCourses); err != nil {
			return nil, fmt.Errorf("unmarshal completed courses: %w", err)
		}
	}
	if remainingJSON.Valid && remainingJSON.String != "" {
		if err := json.Unmarshal([]byte(remainingJSON.String), &p.RemainingDistributions); err != nil {
			return nil, fmt.Errorf("unmarshal remaining distributions: %w", err)
		}
	}
	if favoritesJSON.Valid && favoritesJSON.String != "" {
		if err := json.Unmarshal([]byte(favoritesJSON.String), &p.FavoriteClasses); err != nil {
			return nil, fmt.Errorf("unmarshal favorite classes: %w", err)
		}
	}

	return &p, nil
}

// PutProfile creates or updates a profile.
func (s *DuckDBStore) PutProfile(ctx context.Context, profile *models.UserProfile) error {
	completedJSON, err := json.Marshal(profile.CompletedCourses)
	if err != nil {
		return fmt.Errorf("marshal completed courses: %w", err)
	}
	remainingJSON, err := json.Marshal(profile.RemainingDistributions)
	if err != nil {
		return fmt.Errorf("marshal remaining distributions: %w", err)
	}
	favoritesJSON, err := json.Marshal(profile.FavoriteClasses)
	if err != nil {
		return fmt.Errorf("marshal favorite classes: %w", err)
	}

	_, err = s.conn.ExecContext(ctx, `
		INSERT INTO profiles (id, class_year, concentration,
			completed_courses, remaining_distributions, favorite_classes)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			class_year = excluded.class_year,
			concentration = excluded.concentration,
			completed_courses = excluded.completed_courses,
			remaining_distributions = excluded.remaining_distributions,
			favorite_classes = excluded.favorite_classes`,
		profile.ID, profile.ClassYear, profile.Concentration,
		string(completedJSON), string(remainingJSON), string(favoritesJSON))
	if err != nil {
		return fmt.Errorf("upsert profile %s: %w", profile.ID, err)
	}
	return nil
}
