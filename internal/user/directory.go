// Package user owns the users collection: accounts, credentials, the
// follow graph and per-user favorite sets.
package user

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"vidhub/internal/store"
	"vidhub/pkg/models"
)

var (
	ErrNotFound = errors.New("user: not found")
	// ErrInvalidCredentials covers both unknown username and wrong
	// password; login must not reveal which one it was.
	ErrInvalidCredentials = errors.New("user: invalid credentials")
	ErrUsernameTaken      = errors.New("user: username already exists")
	ErrSelfFollow         = errors.New("user: cannot follow yourself")
	ErrEmptyCredentials   = errors.New("user: username and password required")
)

const (
	ActionFollowed   = "followed"
	ActionUnfollowed = "unfollowed"
)

const dateLayout = "2006-01-02"

type Directory struct {
	users *store.Collection[models.UserAccount]
	log   *logrus.Entry
}

func New(users *store.Collection[models.UserAccount]) *Directory {
	return &Directory{
		users: users,
		log:   logrus.WithField("component", "user-directory"),
	}
}

// Register creates an account with a fresh id and a bcrypt hash of the
// password. Usernames are unique, compared case-sensitively.
func (d *Directory) Register(username, password string) (models.UserAccount, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return models.UserAccount{}, ErrEmptyCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.UserAccount{}, err
	}

	account := models.UserAccount{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hash),
		RegisterDate: time.Now().Format(dateLayout),
		Following:    []string{},
		Favorites:    []string{},
	}
	err = d.users.Update(func(users []models.UserAccount) ([]models.UserAccount, error) {
		for _, u := range users {
			if u.Username == username {
				return nil, ErrUsernameTaken
			}
		}
		return append(users, account), nil
	})
	if err != nil {
		return models.UserAccount{}, err
	}
	d.log.WithField("user", username).Info("account registered")
	return account, nil
}

// Authenticate checks the password against the stored hash. Unknown
// usernames and wrong passwords fail identically.
func (d *Directory) Authenticate(username, password string) (models.UserAccount, error) {
	for _, u := range d.users.Load() {
		if u.Username != username {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
			return models.UserAccount{}, ErrInvalidCredentials
		}
		return u, nil
	}
	return models.UserAccount{}, ErrInvalidCredentials
}

// ByID returns the account with the given id.
func (d *Directory) ByID(id string) (models.UserAccount, error) {
	for _, u := range d.users.Load() {
		if u.ID == id {
			return u, nil
		}
	}
	return models.UserAccount{}, ErrNotFound
}

// ByUsername returns the account with the given username.
func (d *Directory) ByUsername(username string) (models.UserAccount, error) {
	for _, u := range d.users.Load() {
		if u.Username == username {
			return u, nil
		}
	}
	return models.UserAccount{}, ErrNotFound
}

// ToggleFollow flips whether the follower follows target. The follower's
// following set and the target's follower counter are two records in the
// same collection; both halves go out in one save so neither can be lost
// to a concurrent toggle.
func (d *Directory) ToggleFollow(followerID, target string) (action string, followers int, err error) {
	err = d.users.Update(func(users []models.UserAccount) ([]models.UserAccount, error) {
		fi, ti := -1, -1
		for i := range users {
			if users[i].ID == followerID {
				fi = i
			}
			if users[i].Username == target {
				ti = i
			}
		}
		if fi < 0 || ti < 0 {
			return nil, ErrNotFound
		}
		if users[fi].Username == target {
			return nil, ErrSelfFollow
		}

		if containsString(users[fi].Following, target) {
			users[fi].Following = removeString(users[fi].Following, target)
			if users[ti].Followers > 0 {
				users[ti].Followers--
			}
			action = ActionUnfollowed
		} else {
			users[fi].Following = append(users[fi].Following, target)
			users[ti].Followers++
			action = ActionFollowed
		}
		followers = users[ti].Followers
		return users, nil
	})
	return action, followers, err
}

// ToggleFavorite flips videoID in the user's favorite set and reports the
// resulting membership. The caller mirrors that state onto the video
// record afterwards.
func (d *Directory) ToggleFavorite(userID, videoID string) (favorited bool, err error) {
	err = d.users.Update(func(users []models.UserAccount) ([]models.UserAccount, error) {
		for i := range users {
			if users[i].ID != userID {
				continue
			}
			if containsString(users[i].Favorites, videoID) {
				users[i].Favorites = removeString(users[i].Favorites, videoID)
				favorited = false
			} else {
				users[i].Favorites = append(users[i].Favorites, videoID)
				favorited = true
			}
			return users, nil
		}
		return nil, ErrNotFound
	})
	return favorited, err
}

// Favorites returns the user's favorited video ids.
func (d *Directory) Favorites(userID string) ([]string, error) {
	u, err := d.ByID(userID)
	if err != nil {
		return nil, err
	}
	return u.Favorites, nil
}

// Following returns the usernames the user follows, empty if the user is
// unknown.
func (d *Directory) Following(userID string) []string {
	u, err := d.ByID(userID)
	if err != nil {
		return nil
	}
	return u.Following
}

func containsString(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

func removeString(set []string, s string) []string {
	out := set[:0]
	for _, v := range set {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}
