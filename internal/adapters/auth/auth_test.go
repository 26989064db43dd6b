package auth_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/okian/kam/internal/adapters/auth"
	"github.com/okian/kam/internal/domain/access"
	"github.com/okian/kam/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

const secret = "0123456789abcdef0123"

func TestPasswords(t *testing.T) {
	Convey("Given a hashed password", t, func() {
		hash, err := auth.HashPassword("s3cret!")
		So(err, ShouldBeNil)
		So(hash, ShouldNotEqual, "s3cret!")

		Convey("Then the right password matches", func() {
			So(auth.ComparePassword(hash, "s3cret!"), ShouldBeNil)
		})

		Convey("Then a wrong password is rejected", func() {
			So(errors.Is(auth.ComparePassword(hash, "nope"), auth.ErrInvalidCredentials), ShouldBeTrue)
		})

		Convey("Then an empty hash is rejected as bad credentials", func() {
			So(errors.Is(auth.ComparePassword("", "s3cret!"), auth.ErrInvalidCredentials), ShouldBeTrue)
		})
	})
}

func TestTokens(t *testing.T) {
	Convey("Given a token signer", t, func() {
		tokens, err := auth.NewTokens(secret, time.Hour)
		So(err, ShouldBeNil)
		now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
		tokens.SetClock(func() time.Time { return now })

		p := access.Principal{UserID: "u-1", Name: "Asha Rao", Role: model.RoleEmployee, POC: "Asha Rao"}
		raw, exp, err := tokens.Issue(p)
		So(err, ShouldBeNil)
		So(exp, ShouldEqual, now.Add(time.Hour))

		Convey("When the token is verified before expiry", func() {
			got, err := tokens.Verify(raw)

			Convey("Then the principal round-trips", func() {
				So(err, ShouldBeNil)
				So(got, ShouldResemble, p)
			})
		})

		Convey("When the token has expired", func() {
			tokens.SetClock(func() time.Time { return now.Add(2 * time.Hour) })
			_, err := tokens.Verify(raw)
			So(errors.Is(err, auth.ErrInvalidToken), ShouldBeTrue)
		})

		Convey("When the token was signed with another secret", func() {
			other, _ := auth.NewTokens(strings.Repeat("x", 32), time.Hour)
			_, err := other.Verify(raw)
			So(errors.Is(err, auth.ErrInvalidToken), ShouldBeTrue)
		})

		Convey("When the token uses the none algorithm", func() {
			unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
				"sub": "u-1", "role": "admin", "iss": "kam", "exp": now.Add(time.Hour).Unix(),
			}).SignedString(jwt.UnsafeAllowNoneSignatureType)
			So(err, ShouldBeNil)
			_, err = tokens.Verify(unsigned)
			So(errors.Is(err, auth.ErrInvalidToken), ShouldBeTrue)
		})

		Convey("When the input is garbage", func() {
			_, err := tokens.Verify("not.a.token")
			So(errors.Is(err, auth.ErrInvalidToken), ShouldBeTrue)
		})
	})

	Convey("A short secret is refused", t, func() {
		_, err := auth.NewTokens("short", time.Hour)
		So(errors.Is(err, auth.ErrWeakSecret), ShouldBeTrue)
	})
}
