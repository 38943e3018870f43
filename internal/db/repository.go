package db

import (
	"context"
	"database/sql"
	stderrors "errors"
	"strings"
	"time"

	"classroom-photo-sync/internal/model"
	"classroom-photo-sync/pkg/errors"
)

type Repository interface {
	EnsureSchema(ctx context.Context) error
	Insert(ctx context.Context, teacherID string, org model.Org, filePath string, capturedAt int64) (int64, error)
	Get(ctx context.Context, id int64) (*model.CapturedPhoto, error)
	FindByIDs(ctx context.Context, teacherID string, ids []int64) ([]model.CapturedPhoto, error)
	ListByOwnerAndOrg(ctx context.Context, teacherID string, org model.Org, unuploadedOnly bool) ([]model.CapturedPhoto, error)
	ListAll(ctx context.Context) ([]model.CapturedPhoto, error)
	Counts(ctx context.Context, teacherID string, org model.Org) (*model.PhotoCounts, error)
	MarkUploaded(ctx context.Context, id int64) error
	MarkUploadedBatch(ctx context.Context, ids []int64) error
	Delete(ctx context.Context, id int64) error
	DeleteBatch(ctx context.Context, ids []int64) error
}

// repository opens the database file for every call and closes it before
// returning. No handle outlives a call.
type repository struct {
	path string
	now  func() time.Time
}

func NewRepository(path string) Repository {
	return &repository{path: path, now: time.Now}
}

const selectPhoto = `SELECT id, teacherId, school, branch, class, filePath, capturedAt, uploaded, createdAt FROM captured_photos`

func (r *repository) withDB(ctx context.Context, op string, fn func(db *sql.DB) error) (err error) {
	db, err := Open(ctx, r.path)
	if err != nil {
		return errors.NewStorageError(op, err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil && err == nil {
			err = errors.NewStorageError(op, cerr)
		}
	}()

	if err := fn(db); err != nil {
		if stderrors.Is(err, errors.ErrPhotoNotFound) {
			return err
		}
		return errors.NewStorageError(op, err)
	}
	return nil
}

func (r *repository) EnsureSchema(ctx context.Context) error {
	return r.withDB(ctx, "ensure schema", func(db *sql.DB) error {
		return ensureSchema(ctx, db)
	})
}

func (r *repository) Insert(ctx context.Context, teacherID string, org model.Org, filePath string, capturedAt int64) (int64, error) {
	var id int64
	err := r.withDB(ctx, "insert", func(db *sql.DB) error {
		query := `INSERT INTO captured_photos (teacherId, school, branch, class, filePath, capturedAt, uploaded, createdAt)
				  VALUES (?, ?, ?, ?, ?, ?, 0, ?)`
		res, err := db.ExecContext(ctx, query, teacherID, org.School, org.Branch, org.Class,
			filePath, capturedAt, r.now().UnixMilli())
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	return id, err
}

func (r *repository) Get(ctx context.Context, id int64) (*model.CapturedPhoto, error) {
	var photo *model.CapturedPhoto
	err := r.withDB(ctx, "get", func(db *sql.DB) error {
		p, err := scanPhoto(db.QueryRowContext(ctx, selectPhoto+` WHERE id = ?`, id))
		if err == sql.ErrNoRows {
			return errors.ErrPhotoNotFound
		}
		if err != nil {
			return err
		}
		photo = p
		return nil
	})
	return photo, err
}

// FindByIDs returns the teacher's photos among ids, in the order of ids.
// Unknown ids and ids owned by someone else are skipped.
func (r *repository) FindByIDs(ctx context.Context, teacherID string, ids []int64) ([]model.CapturedPhoto, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var photos []model.CapturedPhoto
	err := r.withDB(ctx, "find by ids", func(db *sql.DB) error {
		args := append([]interface{}{teacherID}, int64Args(ids)...)
		found, err := queryPhotos(ctx, db, selectPhoto+` WHERE teacherId = ? AND id IN (`+placeholders(len(ids))+`)`, args...)
		if err != nil {
			return err
		}

		byID := make(map[int64]model.CapturedPhoto, len(found))
		for _, p := range found {
			byID[p.ID] = p
		}
		for _, id := range ids {
			if p, ok := byID[id]; ok {
				photos = append(photos, p)
			}
		}
		return nil
	})
	return photos, err
}

func (r *repository) ListByOwnerAndOrg(ctx context.Context, teacherID string, org model.Org, unuploadedOnly bool) ([]model.CapturedPhoto, error) {
	var photos []model.CapturedPhoto
	err := r.withDB(ctx, "list", func(db *sql.DB) error {
		query := selectPhoto + ` WHERE teacherId = ? AND school = ? AND branch = ? AND class = ?`
		if unuploadedOnly {
			query += ` AND uploaded = 0`
		}
		query += ` ORDER BY capturedAt DESC, id DESC`

		var err error
		photos, err = queryPhotos(ctx, db, query, teacherID, org.School, org.Branch, org.Class)
		return err
	})
	return photos, err
}

func (r *repository) ListAll(ctx context.Context) ([]model.CapturedPhoto, error) {
	var photos []model.CapturedPhoto
	err := r.withDB(ctx, "list all", func(db *sql.DB) error {
		var err error
		photos, err = queryPhotos(ctx, db, selectPhoto+` ORDER BY capturedAt DESC, id DESC`)
		return err
	})
	return photos, err
}

func (r *repository) Counts(ctx context.Context, teacherID string, org model.Org) (*model.PhotoCounts, error) {
	var counts model.PhotoCounts
	err := r.withDB(ctx, "counts", func(db *sql.DB) error {
		query := `SELECT
			COUNT(*),
			COUNT(CASE WHEN uploaded = 1 THEN 1 END),
			COUNT(CASE WHEN uploaded = 0 THEN 1 END)
		FROM captured_photos WHERE teacherId = ? AND school = ? AND branch = ? AND class = ?`
		return db.QueryRowContext(ctx, query, teacherID, org.School, org.Branch, org.Class).
			Scan(&counts.Total, &counts.Uploaded, &counts.Pending)
	})
	if err != nil {
		return nil, err
	}
	return &counts, nil
}

func (r *repository) MarkUploaded(ctx context.Context, id int64) error {
	return r.withDB(ctx, "mark uploaded", func(db *sql.DB) error {
		res, err := db.ExecContext(ctx, `UPDATE captured_photos SET uploaded = 1 WHERE id = ?`, id)
		if err != nil {
			return err
		}
		return requireAffected(res)
	})
}

// MarkUploadedBatch flags every existing id in one transaction. Ids that do
// not exist are ignored.
func (r *repository) MarkUploadedBatch(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	return r.withDB(ctx, "mark uploaded batch", func(db *sql.DB) error {
		return inTx(ctx, db, `UPDATE captured_photos SET uploaded = 1 WHERE id IN (`+placeholders(len(ids))+`)`, ids)
	})
}

// Delete removes the row only. The referenced file is left alone.
func (r *repository) Delete(ctx context.Context, id int64) error {
	return r.withDB(ctx, "delete", func(db *sql.DB) error {
		res, err := db.ExecContext(ctx, `DELETE FROM captured_photos WHERE id = ?`, id)
		if err != nil {
			return err
		}
		return requireAffected(res)
	})
}

func (r *repository) DeleteBatch(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	return r.withDB(ctx, "delete batch", func(db *sql.DB) error {
		return inTx(ctx, db, `DELETE FROM captured_photos WHERE id IN (`+placeholders(len(ids))+`)`, ids)
	})
}

func inTx(ctx context.Context, db *sql.DB, query string, ids []int64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, query, int64Args(ids)...); err != nil {
		return err
	}
	return tx.Commit()
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.ErrPhotoNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPhoto(row rowScanner) (*model.CapturedPhoto, error) {
	var (
		p         model.CapturedPhoto
		createdAt sql.NullInt64
	)
	err := row.Scan(&p.ID, &p.TeacherID, &p.School, &p.Branch, &p.Class,
		&p.FilePath, &p.CapturedAt, &p.Uploaded, &createdAt)
	if err != nil {
		return nil, err
	}
	p.CreatedAt = createdAt.Int64
	return &p, nil
}

func queryPhotos(ctx context.Context, db *sql.DB, query string, args ...interface{}) ([]model.CapturedPhoto, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var photos []model.CapturedPhoto
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, err
		}
		photos = append(photos, *p)
	}
	return photos, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func int64Args(ids []int64) []interface{} {
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
