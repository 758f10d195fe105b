package employee

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	employeeerrors "go-presence/internal/employee/errors"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	StaffCodeKeyPrefix = "employees:staff:"
	staffCodeCacheTTL  = 10 * time.Minute
)

func GetStaffCodeKey(code string) string {
	return StaffCodeKeyPrefix + code
}

// Directory resolves punch identities to employees.
//
//go:generate mockgen -source=employee_directory.go -destination=mock/employee_directory_mock.go -package=mock
type Directory interface {
	ByStaffCode(ctx context.Context, code string) (Employee, error)
	ByID(ctx context.Context, companyID, id string) (Employee, error)
}

type directory struct {
	repo   Repository
	rdb    *redis.Client
	sf     *singleflight.Group
	logger *zap.Logger
}

// NewDirectory caches staff code lookups in redis when rdb is non-nil.
// Devices replay whole batches after a reconnect, so the same codes arrive in
// bursts.
func NewDirectory(repo Repository, rdb *redis.Client, logger ...*zap.Logger) Directory {
	l := zap.L().Named("employee.directory")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("employee.directory")
	}
	return &directory{repo: repo, rdb: rdb, sf: &singleflight.Group{}, logger: l}
}

func (d *directory) ByStaffCode(ctx context.Context, code string) (Employee, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return Employee{}, employeeerrors.ErrEmptyStaffCode
	}
	cacheKey := GetStaffCodeKey(code)

	if d.rdb != nil {
		if cached, err := d.rdb.Get(ctx, cacheKey).Result(); err == nil {
			var empl Employee
			if json.Unmarshal([]byte(cached), &empl) == nil {
				return empl, nil
			}
		} else if err != redis.Nil {
			d.logger.Warn("staff code cache read failed", zap.String("key", cacheKey), zap.Error(err))
		}
	}

	v, err, _ := d.sf.Do(cacheKey, func() (interface{}, error) {
		empl, err := d.repo.FindByEmployeeNumber(ctx, code)
		if err != nil {
			return nil, err
		}

		if d.rdb != nil {
			if payload, err := json.Marshal(empl); err == nil {
				if err := d.rdb.Set(ctx, cacheKey, payload, staffCodeCacheTTL).Err(); err != nil {
					d.logger.Warn("staff code cache write failed", zap.String("key", cacheKey), zap.Error(err))
				}
			}
		}
		return *empl, nil
	})
	if err != nil {
		return Employee{}, err
	}

	return v.(Employee), nil
}

func (d *directory) ByID(ctx context.Context, companyID, id string) (Employee, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Employee{}, employeeerrors.ErrInvalidEmployeeID
	}
	empl, err := d.repo.FindByIDAndCompany(ctx, companyID, id)
	if err != nil {
		return Employee{}, err
	}
	return *empl, nil
}
