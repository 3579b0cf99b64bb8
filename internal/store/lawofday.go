package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/murphyslaws/murphys-laws/internal/core"
)

// FeaturedDateLayout is the calendar date format of law_of_the_day_history.
const FeaturedDateLayout = "2006-01-02"

// A law featured within this many days is not picked again while other
// published laws remain.
const lawOfTheDayCooldownDays = 365

// LawOfTheDay returns the law featured on day's UTC date. The first call for
// a date picks the most upvoted published law not featured in the past year
// (ties broken by text), falling back to all published laws, and records the
// pick so later calls agree. It yields (nil, nil) when nothing is published
// or the recorded law has since been unpublished.
func (s *Store) LawOfTheDay(ctx context.Context, day time.Time) (*core.FeaturedLaw, error) {
	if s == nil || s.DB == nil {
		return nil, errNotInitialized
	}
	if ctx == nil {
		ctx = context.Background()
	}

	date := day.UTC().Format(FeaturedDateLayout)

	lawID, found, err := s.featuredLawID(ctx, date)
	if err != nil {
		return nil, err
	}
	if !found {
		lawID, found, err = s.pickLawOfTheDay(ctx, date)
		if err != nil || !found {
			return nil, err
		}
		// A concurrent request may have recorded a pick first; the stored
		// row wins.
		if _, err := s.DB.ExecContext(ctx, `
			INSERT INTO law_of_the_day_history (law_id, featured_date)
			VALUES (?, ?)
			ON CONFLICT(featured_date) DO NOTHING
		`, lawID, date); err != nil {
			return nil, fmt.Errorf("record law of the day: %w", err)
		}
		if lawID, _, err = s.featuredLawID(ctx, date); err != nil {
			return nil, err
		}
	}

	law, err := s.GetLaw(ctx, lawID)
	if err != nil || law == nil {
		return nil, err
	}
	return &core.FeaturedLaw{Law: law, FeaturedDate: date}, nil
}

func (s *Store) featuredLawID(ctx context.Context, date string) (int64, bool, error) {
	var lawID int64
	err := s.DB.QueryRowContext(ctx, `
		SELECT law_id FROM law_of_the_day_history WHERE featured_date = ? LIMIT 1
	`, date).Scan(&lawID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("lookup law of the day: %w", err)
	}
	return lawID, true, nil
}

func (s *Store) pickLawOfTheDay(ctx context.Context, date string) (int64, bool, error) {
	const ranked = `
		SELECT l.id
		FROM laws l
		WHERE l.status = 'published' %s
		ORDER BY
			(SELECT COUNT(*) FROM votes v WHERE v.law_id = l.id AND v.vote_type = 'up') DESC,
			l.text ASC
		LIMIT 1`

	fresh := fmt.Sprintf(ranked, `
			AND l.id NOT IN (
				SELECT law_id FROM law_of_the_day_history
				WHERE featured_date > date(?, ?)
			)`)
	cooldown := fmt.Sprintf("-%d days", lawOfTheDayCooldownDays)

	var lawID int64
	err := s.DB.QueryRowContext(ctx, fresh, date, cooldown).Scan(&lawID)
	if errors.Is(err, sql.ErrNoRows) {
		err = s.DB.QueryRowContext(ctx, fmt.Sprintf(ranked, "")).Scan(&lawID)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("pick law of the day: %w", err)
	}
	return lawID, true, nil
}
