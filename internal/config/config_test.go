package config_test

import (
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/okian/kam/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with defaults", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.LogFormat, convey.ShouldEqual, "text")
			convey.So(cfg.Storage.Driver, convey.ShouldEqual, config.DriverFile)
			convey.So(cfg.Persist.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.Import.PreviewTTL, convey.ShouldEqual, 15*time.Minute)
			convey.So(cfg.Auth.TokenTTL, convey.ShouldEqual, 12*time.Hour)
		})

		convey.Convey("Then it is invalid until a signing secret is supplied", func() {
			err := cfg.Validate()
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldContainSubstring, "jwt_secret")

			cfg.Auth.JWTSecret = "0123456789abcdef"
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_ValidateStorage(t *testing.T) {
	convey.Convey("Given a config with a secret", t, func() {
		cfg := config.New()
		cfg.Auth.JWTSecret = "0123456789abcdef"

		convey.Convey("An unknown driver is rejected", func() {
			cfg.Storage.Driver = "mongo"
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("Postgres needs a DSN", func() {
			cfg.Storage.Driver = config.DriverPostgres
			convey.So(cfg.Validate(), convey.ShouldNotBeNil)
			cfg.Storage.PostgresDSN = "postgres://kam@localhost/kam"
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("SQLite needs a path", func() {
			cfg.Storage.Driver = config.DriverSQLite
			cfg.Storage.SQLitePath = ""
			convey.So(cfg.Validate(), convey.ShouldNotBeNil)
		})

		convey.Convey("Memory needs nothing else", func() {
			cfg.Storage.Driver = config.DriverMemory
			cfg.Storage.DataDir = ""
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("A short secret is rejected", func() {
			cfg.Auth.JWTSecret = "short"
			convey.So(cfg.Validate(), convey.ShouldNotBeNil)
		})
	})
}
