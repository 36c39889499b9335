package diary

import (
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/keys-pub/diary/cipher"
	"github.com/keys-pub/diary/dbu"
	"github.com/pkg/errors"
)

// DateFormat for entry dates.
const DateFormat = "2006-01-02"

// Entry is a diary entry for a day.
type Entry struct {
	Date      string    `json:"date"`
	Title     string    `json:"title"`
	Text      string    `json:"text"`
	WordCount int       `json:"wordCount"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type entryRow struct {
	Date      string    `db:"date"`
	Title     []byte    `db:"title"`
	Text      []byte    `db:"text"`
	WordCount int       `db:"word_count"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func checkDate(date string) error {
	if _, err := time.Parse(DateFormat, date); err != nil {
		return errors.Errorf("invalid date %q", date)
	}
	return nil
}

// SaveEntry adds or updates the entry for its date.
// Requires Unlock.
func (d *Diary) SaveEntry(entry *Entry) error {
	if err := checkDate(entry.Date); err != nil {
		return err
	}
	return d.unlocked(func(s *session) error {
		title, err := cipher.Seal(s.key(), []byte(entry.Title))
		if err != nil {
			return err
		}
		text, err := cipher.Seal(s.key(), []byte(entry.Text))
		if err != nil {
			return err
		}
		now := d.clock.Now()
		row := &entryRow{
			Date:      entry.Date,
			Title:     title,
			Text:      text,
			WordCount: len(strings.Fields(entry.Text)),
			CreatedAt: now,
			UpdatedAt: now,
		}
		return dbu.Transact(s.db, func(tx *sqlx.Tx) error {
			var created time.Time
			err := tx.Get(&created, "SELECT created_at FROM entries WHERE date = $1", entry.Date)
			switch {
			case err == nil:
				row.CreatedAt = created
			case errors.Is(err, sql.ErrNoRows):
			default:
				return err
			}
			logger.Debugf("Saving entry %s", entry.Date)
			stmt := `INSERT OR REPLACE INTO entries (date, title, text, word_count, created_at, updated_at)
					VALUES (:date, :title, :text, :word_count, :created_at, :updated_at)`
			if _, err := tx.NamedExec(stmt, row); err != nil {
				return err
			}
			entry.WordCount = row.WordCount
			entry.CreatedAt = row.CreatedAt
			entry.UpdatedAt = row.UpdatedAt
			return nil
		})
	})
}

// Entry for date, or nil if there is none.
// Requires Unlock.
func (d *Diary) Entry(date string) (*Entry, error) {
	if err := checkDate(date); err != nil {
		return nil, err
	}
	var entry *Entry
	err := d.unlocked(func(s *session) error {
		var row entryRow
		if err := s.db.Get(&row, "SELECT * FROM entries WHERE date = $1", date); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return err
		}
		title, err := cipher.Open(s.key(), row.Title)
		if err != nil {
			return errors.Wrapf(err, "failed to decrypt entry %s", date)
		}
		text, err := cipher.Open(s.key(), row.Text)
		if err != nil {
			return errors.Wrapf(err, "failed to decrypt entry %s", date)
		}
		entry = &Entry{
			Date:      row.Date,
			Title:     string(title),
			Text:      string(text),
			WordCount: row.WordCount,
			CreatedAt: row.CreatedAt,
			UpdatedAt: row.UpdatedAt,
		}
		return nil
	})
	return entry, err
}

// EntryDates lists dates with entries, oldest first.
// Requires Unlock.
func (d *Diary) EntryDates() ([]string, error) {
	var dates []string
	err := d.unlocked(func(s *session) error {
		dates = []string{}
		return s.db.Select(&dates, "SELECT date FROM entries ORDER BY date")
	})
	return dates, err
}

// DeleteEntry removes the entry for date.
// Requires Unlock.
func (d *Diary) DeleteEntry(date string) error {
	return d.unlocked(func(s *session) error {
		if _, err := s.db.Exec("DELETE FROM entries WHERE date = $1", date); err != nil {
			return errors.Wrapf(err, "failed to delete entry")
		}
		return nil
	})
}
