package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Dosada05/competition-engine/models"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLoadDefaults(t *testing.T) {
	Convey("Given only the required environment", t, func() {
		t.Setenv("ENGINE_JWT_SECRET", "s3cret")

		cfg, err := Load()
		So(err, ShouldBeNil)

		Convey("Defaults fill everything else", func() {
			So(cfg.ServerPort, ShouldEqual, 8080)
			So(cfg.StoreDriver, ShouldEqual, StoreMemory)
			So(cfg.PointsForWin, ShouldEqual, 3)
			So(cfg.InitialRating, ShouldEqual, models.DefaultRating)
			So(cfg.KFactorTiers, ShouldHaveLength, 2)
			So(cfg.ArchiveEnabled(), ShouldBeFalse)
			So(cfg.Coordinator().MaxAttempts, ShouldEqual, 5)
		})
	})
}

func TestLoadLayers(t *testing.T) {
	Convey("Given a YAML file and environment overrides", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "engine.yaml")
		yaml := "server_port: 9000\n" +
			"points_for_win: 2\n" +
			"playoff_mode: auto\n" +
			"k_factor_tiers:\n" +
			"  - below_matches: 0\n" +
			"    k: 24\n" +
			"allowed_origins:\n" +
			"  - https://club.example\n"
		So(os.WriteFile(path, []byte(yaml), 0o600), ShouldBeNil)

		t.Setenv("ENGINE_CONFIG", path)
		t.Setenv("ENGINE_JWT_SECRET", "s3cret")
		t.Setenv("ENGINE_SERVER_PORT", "9100")

		cfg, err := Load()
		So(err, ShouldBeNil)

		Convey("The environment wins over the file", func() {
			So(cfg.ServerPort, ShouldEqual, 9100)
		})

		Convey("The file wins over the defaults", func() {
			So(cfg.PointsForWin, ShouldEqual, 2)
			So(cfg.PlayoffMode, ShouldEqual, "auto")
			So(cfg.AllowedOrigins, ShouldResemble, []string{"https://club.example"})
			So(cfg.Engine().KFactorTiers, ShouldResemble, []models.KFactorTier{{BelowMatches: 0, K: 24}})
			So(cfg.Engine().PlayoffMode, ShouldEqual, models.PlayoffAuto)
		})
	})
}

func TestLoadOriginList(t *testing.T) {
	Convey("Given a comma separated origin list in the environment", t, func() {
		t.Setenv("ENGINE_JWT_SECRET", "s3cret")
		t.Setenv("ENGINE_ALLOWED_ORIGINS", "https://a.example,https://b.example")

		cfg, err := Load()
		So(err, ShouldBeNil)
		So(cfg.AllowedOrigins, ShouldResemble, []string{"https://a.example", "https://b.example"})
	})
}

func TestValidate(t *testing.T) {
	Convey("Given a valid configuration", t, func() {
		cfg := Default()
		cfg.JWTSecretKey = "s3cret"
		So(cfg.Validate(), ShouldBeNil)

		Convey("a missing JWT secret is rejected", func() {
			cfg.JWTSecretKey = ""
			So(cfg.Validate(), ShouldNotBeNil)
		})

		Convey("postgres without a database URL is rejected", func() {
			cfg.StoreDriver = StorePostgres
			So(cfg.Validate(), ShouldNotBeNil)
			cfg.DatabaseURL = "postgres://localhost/engine"
			So(cfg.Validate(), ShouldBeNil)
		})

		Convey("an unknown log level is rejected", func() {
			cfg.LogLevel = "loud"
			So(cfg.Validate(), ShouldNotBeNil)
		})

		Convey("an unknown playoff mode is rejected", func() {
			cfg.PlayoffMode = "sometimes"
			So(cfg.Validate(), ShouldNotBeNil)
		})

		Convey("a loss worth more than a win is rejected", func() {
			cfg.PointsForLoss = 4
			So(cfg.Validate(), ShouldNotBeNil)
		})
	})
}
