package export

import (
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/storymap/pkg/debug"
	"github.com/vanderheijden86/storymap/pkg/media"
	"github.com/vanderheijden86/storymap/pkg/page"
)

// WriteSQLite exports the scene's story, lines and markers to a fresh SQLite
// database at path.
func WriteSQLite(sc *Scene, path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing database: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := CreateSchema(db); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if err := insertSlides(db, sc); err != nil {
		return fmt.Errorf("insert slides: %w", err)
	}
	if err := insertLines(db, sc); err != nil {
		return fmt.Errorf("insert lines: %w", err)
	}
	if err := insertMarkers(db, sc); err != nil {
		return fmt.Errorf("insert markers: %w", err)
	}
	if err := CreateFTSIndex(db); err != nil {
		debug.Log("export: FTS5 not available: %v", err)
	}
	if err := insertMeta(db, sc); err != nil {
		return fmt.Errorf("insert meta: %w", err)
	}
	if err := OptimizeDatabase(db); err != nil {
		return fmt.Errorf("optimize database: %w", err)
	}
	return db.Close()
}

func insertSlides(db *sql.DB, sc *Scene) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO slides (idx, headline, body, body_text, media_url, media_kind,
			located, lat, lon, zoom, icon, line, background_color, background_url)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, sl := range sc.Story.Slides {
		var lat, lon, zoom, icon any
		line := false
		if loc := sl.Location; loc != nil {
			line = loc.HasLine()
			if loc.Valid() {
				p := loc.LngLat()
				lat, lon = p.Lat, p.Lon
				if z, ok := loc.Zoom.Float(); ok {
					zoom = z
				}
			}
			if ic := sl.Icon(); ic != "" {
				icon = ic
			}
		}
		var bgColor, bgURL any
		if bg := sl.Background; bg != nil {
			bgColor, bgURL = nullable(bg.Color), nullable(bg.URL)
		}
		url := sl.MediaURL()
		if _, err := stmt.Exec(
			i,
			sl.Text.Headline,
			sl.Text.Body,
			page.BodyText(sl.Text.Body),
			nullable(url),
			media.KindOf(url).String(),
			sl.Located(),
			lat, lon, zoom, icon,
			line,
			bgColor, bgURL,
		); err != nil {
			return fmt.Errorf("insert slide %d: %w", i, err)
		}
	}
	return tx.Commit()
}

func insertLines(db *sql.DB, sc *Scene) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO lines (id, source_id, from_slide, to_slide, color, width, dash)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, ref := range sc.Lines {
		layer, ok := sc.Canvas.Layer(ref.ID)
		if !ok {
			continue
		}
		dash := make([]string, len(layer.Paint.Dash))
		for i, d := range layer.Paint.Dash {
			dash[i] = fmt.Sprintf("%g", d)
		}
		if _, err := stmt.Exec(ref.ID, ref.SourceID, ref.Target-1, ref.Target,
			layer.Paint.Color, layer.Paint.Width, strings.Join(dash, ",")); err != nil {
			return fmt.Errorf("insert line %s: %w", ref.ID, err)
		}
	}
	return tx.Commit()
}

func insertMarkers(db *sql.DB, sc *Scene) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO markers (slide, lat, lon, icon) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, m := range sc.Canvas.Markers() {
		if _, err := stmt.Exec(m.Slide, m.At.Lat, m.At.Lon, m.Icon); err != nil {
			return fmt.Errorf("insert marker %d: %w", m.Slide, err)
		}
	}
	return tx.Commit()
}

func insertMeta(db *sql.DB, sc *Scene) error {
	meta := map[string]string{
		"title":          sc.Title(),
		"profile":        sc.Profile.Name,
		"current_slide":  fmt.Sprint(sc.Slide),
		"slide_count":    fmt.Sprint(sc.Story.Len()),
		"line_count":     fmt.Sprint(len(sc.Lines)),
		"generated_at":   time.Now().UTC().Format(time.RFC3339),
		"schema_version": fmt.Sprint(SchemaVersion),
	}
	for key, value := range meta {
		if err := InsertMetaValue(db, key, value); err != nil {
			return fmt.Errorf("insert meta %s: %w", key, err)
		}
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
