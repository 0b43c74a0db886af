// Package ledger применяет версионированные пары SQL-миграций и ведёт журнал применённых шагов.
package ledger

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"sort"
	"time"

	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/voyager-tech/go-backend/pkg/e"
)

// Migration — неразделимая пара прямого и обратного DDL.
type Migration struct {
	Version     int64
	Description string
	Up          string
	Down        string
}

// State — состояние одной миграции в журнале.
type State struct {
	Version     int64
	Description string
	Applied     bool
	AppliedAt   *time.Time
}

// Load читает миграции из каталога dir файловой системы fsys.
// Имена файлов: NNNNNN_описание.up.sql и NNNNNN_описание.down.sql.
func Load(fsys fs.FS, dir string) ([]Migration, error) {
	drv, err := iofs.New(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", e.ErrMigration, err)
	}
	defer drv.Close()

	return readAll(drv)
}

func readAll(drv source.Driver) ([]Migration, error) {
	var migrations []Migration

	version, err := drv.First()
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", e.ErrMigration, err)
	}

	for {
		m, err := readPair(drv, version)
		if err != nil {
			return nil, err
		}
		migrations = append(migrations, m)

		version, err = drv.Next(version)
		if errors.Is(err, fs.ErrNotExist) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", e.ErrMigration, err)
		}
	}

	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Version < migrations[j].Version })
	return migrations, nil
}

func readPair(drv source.Driver, version uint) (Migration, error) {
	up, desc, err := readBody(drv.ReadUp, version)
	if err != nil {
		return Migration{}, err
	}

	down, _, err := readBody(drv.ReadDown, version)
	if err != nil {
		return Migration{}, err
	}

	return Migration{
		Version:     int64(version),
		Description: desc,
		Up:          up,
		Down:        down,
	}, nil
}

func readBody(read func(uint) (io.ReadCloser, string, error), version uint) (string, string, error) {
	r, identifier, err := read(version)
	if errors.Is(err, fs.ErrNotExist) {
		return "", "", fmt.Errorf("%w: version %d", e.ErrIncompletePair, version)
	}
	if err != nil {
		return "", "", fmt.Errorf("%w: version %d: %w", e.ErrMigration, version, err)
	}
	defer r.Close()

	body, err := io.ReadAll(r)
	if err != nil {
		return "", "", fmt.Errorf("%w: version %d: %w", e.ErrMigration, version, err)
	}

	return string(body), identifier, nil
}

// Plan сверяет журнал с известными миграциями и возвращает ожидающие в порядке применения.
// Применённые версии обязаны образовывать префикс упорядоченного списка.
func Plan(migrations []Migration, applied map[int64]time.Time) ([]Migration, error) {
	for i, m := range migrations {
		if _, ok := applied[m.Version]; ok {
			continue
		}

		for _, rest := range migrations[i+1:] {
			if _, ok := applied[rest.Version]; ok {
				return nil, fmt.Errorf("%w: version %d applied before %d", e.ErrLedgerGap, rest.Version, m.Version)
			}
		}

		if err := checkKnown(migrations, applied); err != nil {
			return nil, err
		}

		return migrations[i:], nil
	}

	if err := checkKnown(migrations, applied); err != nil {
		return nil, err
	}

	return nil, nil
}

// checkKnown отклоняет записи журнала о версиях, для которых нет файлов.
func checkKnown(migrations []Migration, applied map[int64]time.Time) error {
	known := make(map[int64]struct{}, len(migrations))
	for _, m := range migrations {
		known[m.Version] = struct{}{}
	}

	for v := range applied {
		if _, ok := known[v]; !ok {
			return fmt.Errorf("%w: applied version %d has no migration files", e.ErrLedgerGap, v)
		}
	}

	return nil
}

// States собирает отчёт по каждой известной миграции.
func States(migrations []Migration, applied map[int64]time.Time) []State {
	states := make([]State, 0, len(migrations))
	for _, m := range migrations {
		st := State{Version: m.Version, Description: m.Description}
		if at, ok := applied[m.Version]; ok {
			at := at
			st.Applied = true
			st.AppliedAt = &at
		}
		states = append(states, st)
	}

	return states
}
