package directory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	id "tenderdesk/pkg/domain"
	"tenderdesk/pkg/platform/sentinel"
)

type DirectorySuite struct {
	suite.Suite
	dir *InMemoryDirectory
}

func (s *DirectorySuite) SetupTest() {
	s.dir = NewInMemoryDirectory()
}

func TestDirectorySuite(t *testing.T) {
	suite.Run(t, new(DirectorySuite))
}

func (s *DirectorySuite) newIdentity(email string) Identity {
	return Identity{
		ID:           id.NewUserID(),
		Name:         "Test User",
		Email:        email,
		Role:         RoleUser,
		Active:       true,
		CreatedAt:    time.Now(),
		PasswordHash: "$2a$10$fakehash",
	}
}

func (s *DirectorySuite) TestLookup() {
	s.Run("finds by id and email", func() {
		identity := s.newIdentity("marie.dubois@example.com")
		s.Require().NoError(s.dir.Create(context.Background(), identity))

		byID, err := s.dir.FindByID(context.Background(), identity.ID)
		s.Require().NoError(err)
		s.Equal(identity, byID)

		byEmail, err := s.dir.FindByEmail(context.Background(), "marie.dubois@example.com")
		s.Require().NoError(err)
		s.Equal(identity, byEmail)
	})

	s.Run("email lookup is case-insensitive", func() {
		identity := s.newIdentity("upper@example.com")
		s.Require().NoError(s.dir.Create(context.Background(), identity))

		found, err := s.dir.FindByEmail(context.Background(), "UPPER@Example.COM")
		s.Require().NoError(err)
		s.Equal(identity.ID, found.ID)
	})

	s.Run("returns ErrNotFound for unknown identity", func() {
		_, err := s.dir.FindByID(context.Background(), id.NewUserID())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)

		_, err = s.dir.FindByEmail(context.Background(), "nobody@example.com")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("rejects duplicate email", func() {
		s.Require().NoError(s.dir.Create(context.Background(), s.newIdentity("dup@example.com")))
		err := s.dir.Create(context.Background(), s.newIdentity("dup@example.com"))
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})
}

func (s *DirectorySuite) TestUpdates() {
	s.Run("updates last login", func() {
		identity := s.newIdentity("login@example.com")
		s.Require().NoError(s.dir.Create(context.Background(), identity))

		at := time.Now().Truncate(time.Second)
		s.Require().NoError(s.dir.UpdateLastLogin(context.Background(), identity.ID, at))

		found, err := s.dir.FindByID(context.Background(), identity.ID)
		s.Require().NoError(err)
		s.Require().NotNil(found.LastLogin)
		s.True(found.LastLogin.Equal(at))
	})

	s.Run("updates password hash", func() {
		identity := s.newIdentity("pw@example.com")
		s.Require().NoError(s.dir.Create(context.Background(), identity))

		s.Require().NoError(s.dir.UpdatePasswordHash(context.Background(), identity.ID, "new-hash"))

		found, err := s.dir.FindByID(context.Background(), identity.ID)
		s.Require().NoError(err)
		s.Equal("new-hash", found.PasswordHash)
	})

	s.Run("update on unknown identity returns ErrNotFound", func() {
		err := s.dir.UpdateLastLogin(context.Background(), id.NewUserID(), time.Now())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *DirectorySuite) TestSeed() {
	identity, err := SeedIdentity(context.Background(), s.dir, "jean.martin@example.com", "hash", RoleAdmin)
	s.Require().NoError(err)
	s.Equal("Jean Martin", identity.Name)
	s.Equal(RoleAdmin, identity.Role)
	s.True(identity.SuperAdmin)

	found, err := s.dir.FindByEmail(context.Background(), "jean.martin@example.com")
	s.Require().NoError(err)
	s.Equal(identity.ID, found.ID)
}
