package database_test

import (
	"testing"

	"github.com/sahilchouksey/byteboost-api/database"
	"github.com/sahilchouksey/byteboost-api/database/dbtest"
	"github.com/sahilchouksey/byteboost-api/model"
	"github.com/sahilchouksey/byteboost-api/utils/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestSeedAllIsIdempotent(t *testing.T) {
	db := dbtest.New(t)
	seeder := database.NewSeeder(db, database.DefaultSeedConfig(), logger.Nop())

	require.NoError(t, seeder.SeedAll())
	require.NoError(t, seeder.SeedAll())

	var users, courses, lessons int64
	require.NoError(t, db.Model(&model.User{}).Count(&users).Error)
	require.NoError(t, db.Model(&model.Course{}).Count(&courses).Error)
	require.NoError(t, db.Model(&model.Lesson{}).Count(&lessons).Error)
	assert.EqualValues(t, 2, users)
	assert.EqualValues(t, 2, courses)
	assert.EqualValues(t, 7, lessons)

	var admin model.User
	require.NoError(t, db.Where("email = ?", "admin@byteboost.in").First(&admin).Error)
	assert.Equal(t, model.RoleAdmin, admin.Role)
	assert.True(t, admin.IsActive)

	var course model.Course
	require.NoError(t, db.Preload("Modules", func(tx *gorm.DB) *gorm.DB { return tx.Order("order_index") }).
		Preload("Modules.Lessons", func(tx *gorm.DB) *gorm.DB { return tx.Order("order_index") }).
		Where("slug = ?", "go-backend-fundamentals").First(&course).Error)
	assert.True(t, course.IsPublished)
	require.Len(t, course.Modules, 2)
	assert.True(t, course.Modules[0].Lessons[0].FreePreview)
}
