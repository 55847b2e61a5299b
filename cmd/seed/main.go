package main

import (
	"context"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-odata-api/config"
	"github.com/oksasatya/go-odata-api/internal/application"
	"github.com/oksasatya/go-odata-api/internal/domain/entity"
	"github.com/oksasatya/go-odata-api/internal/domain/repository"
	"github.com/oksasatya/go-odata-api/internal/infrastructure/postgres"
	"github.com/oksasatya/go-odata-api/pkg/helpers"
)

const seedActor = "seed"

type mockUser struct {
	user      entity.User
	addresses []int // indexes into mockAddresses
	notes     []string
}

func addressType(t entity.AddressType) *entity.AddressType { return &t }

var mockAddresses = []entity.Address{
	{StreetNumber: 1600, StreetName: "Amphitheatre Parkway", City: "Mountain View", State: "CA", ZipCode: "94043", Name: "Office", Type: addressType(entity.Business)},
	{StreetNumber: 221, StreetName: "Baker Street", City: "Springfield", State: "IL", ZipCode: "62701", Name: "Home", Type: addressType(entity.Residential)},
	{StreetNumber: 742, StreetName: "Evergreen Terrace", City: "Springfield", State: "OR", ZipCode: "97477", Type: addressType(entity.Residential)},
	{StreetNumber: 350, StreetName: "Fifth Avenue", StreetName2: "Empire State Building", City: "New York", State: "NY", ZipCode: "10118", Suite: "5400", Type: addressType(entity.Business)},
}

var mockUsers = []mockUser{
	{
		user:      entity.User{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Phone: "555-0100"},
		addresses: []int{0, 1},
		notes:     []string{"Prefers email contact"},
	},
	{
		user:      entity.User{FirstName: "Alan", MiddleName: "Mathison", LastName: "Turing", Email: "alan@example.com"},
		addresses: []int{0},
		notes:     []string{"VIP", "Call before delivery"},
	},
	{
		user:      entity.User{FirstName: "Grace", LastName: "Hopper", Email: "grace@example.com", Phone: "555-0199"},
		addresses: []int{2, 3},
	},
	{
		user:      entity.User{FirstName: "Linus", LastName: "Torvalds", Email: "linus@example.com"},
		addresses: []int{3},
	},
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to database")
	}
	defer pool.Close()

	users := postgres.NewUserRepository(pool)
	tx := postgres.NewTxManager(pool)

	n, err := users.Count(ctx, nil, repository.Scope{})
	if err != nil {
		logger.WithError(err).Fatal("failed to count users")
	}
	if n == 0 {
		err := tx.RunInTx(ctx, func(ctx context.Context) error {
			return seedMockData(ctx, users, postgres.NewAddressRepository(pool),
				postgres.NewAssociationRepository(pool), postgres.NewNoteRepository(pool))
		})
		if err != nil {
			logger.WithError(err).Fatal("failed to seed mock data")
		}
		logger.WithFields(logrus.Fields{"users": len(mockUsers), "addresses": len(mockAddresses)}).Info("seeded mock data")
	} else {
		logger.WithField("users", n).Info("users table not empty; skipping mock data")
	}

	security := application.NewSecurityService(postgres.NewClaimRolesRepository(pool), nil, cfg.RolesCacheTTL, logger)
	for _, name := range cfg.AdminNames() {
		if err := security.Grant(ctx, &entity.ClaimRoles{Name: name, Roles: cfg.AdminRole}); err != nil {
			logger.WithError(err).WithField("name", name).Fatal("failed to grant admin role")
		}
		helpers.LogInfo(logger, "granted role", logrus.Fields{"name": name, "role": cfg.AdminRole})
	}
}

func seedMockData(ctx context.Context, users repository.UserRepository, addresses repository.AddressRepository,
	links repository.AssociationRepository, notes repository.NoteRepository) error {
	now := time.Now().UTC()

	addrIDs := make([]int, len(mockAddresses))
	for i := range mockAddresses {
		a := mockAddresses[i]
		a.StampCreated(seedActor, now)
		if err := addresses.Create(ctx, &a); err != nil {
			return err
		}
		addrIDs[i] = a.ID
	}

	for _, m := range mockUsers {
		u := m.user
		u.StampCreated(seedActor, now)
		if err := users.Create(ctx, &u); err != nil {
			return err
		}
		for _, idx := range m.addresses {
			if err := links.Link(ctx, u.ID, addrIDs[idx]); err != nil {
				return err
			}
		}
		for _, text := range m.notes {
			if err := notes.CreateUserNote(ctx, &entity.UserNote{UserID: u.ID, Note: text}); err != nil {
				return err
			}
		}
	}
	return nil
}
