package server

import (
	"net"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/campuselect/api.vote.campuselect.dev/audit"
	"github.com/campuselect/api.vote.campuselect.dev/configure"
	"github.com/campuselect/api.vote.campuselect.dev/election"
	"github.com/campuselect/api.vote.campuselect.dev/mongo"
	"github.com/campuselect/api.vote.campuselect.dev/reconcile"
	"github.com/campuselect/api.vote.campuselect.dev/server/rest"
	"github.com/campuselect/api.vote.campuselect.dev/store/mongostore"
	"github.com/campuselect/api.vote.campuselect.dev/tally"
	"github.com/campuselect/api.vote.campuselect.dev/utils"
	"github.com/campuselect/api.vote.campuselect.dev/voting"

	log "github.com/sirupsen/logrus"
)

type Server struct {
	app *fiber.App
	ln  net.Listener
}

type customLogger struct{}

func (*customLogger) Write(data []byte) (n int, err error) {
	log.Debugln(utils.B2S(data))
	return len(data), nil
}

func checkErr(err error) {
	if err != nil {
		panic(err)
	}
}

func NewServer() *Server {
	ln, err := net.Listen(configure.Config.GetString("listener_network"), configure.Config.GetString("listener_address"))
	checkErr(err)

	server := &Server{
		ln: ln,
		app: fiber.New(fiber.Config{
			ErrorHandler: errorHandler,
		}),
	}

	server.app.Use(recover.New())
	server.app.Use(cors.New())
	server.app.Use(logger.New(logger.Config{
		Output: &customLogger{},
	}))

	db := mongostore.New(mongo.Client, mongo.Database)
	cacheTTL := time.Duration(configure.Config.GetInt("status_cache_ttl")) * time.Second
	auditor := audit.New(db)
	elections := election.New(db, election.NewRedisCache(cacheTTL), nil)

	rest.REST(server.app, rest.Deps{
		Elections: elections,
		Voting:    voting.NewService(elections, db, db, db, voting.NewRedisPublisher(), auditor, nil),
		Tally:     tally.NewEngine(db, db, db, db),
		Reconcile: reconcile.NewEngine(db, db, db, db),
		Audit:     auditor,
		JwtSecret: configure.Config.GetString("jwt_secret"),
	})

	server.app.Use(func(c *fiber.Ctx) error {
		return c.Status(404).JSON(&fiber.Map{
			"status":  404,
			"message": "We don't know what you're looking for.",
		})
	})

	go func() {
		err = server.app.Listener(server.ln)
		if err != nil {
			log.Errorf("failed to start http server, err=%v", err)
		}
	}()

	return server
}

func errorHandler(c *fiber.Ctx, err error) error {
	log.Errorf("internal err=%v", spew.Sdump(err))

	return c.Status(500).JSON(&fiber.Map{
		"status":  500,
		"message": "Internal server error.",
	})
}

func (s *Server) Shutdown() error {
	return s.ln.Close()
}
