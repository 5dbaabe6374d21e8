package cli

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/foodhub/internal/common"
)

// getSimpleText and getPassword are swapped out in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

func (a *App) credentials() (string, []byte, error) {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return "", nil, err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return "", nil, err
	}
	return email, password, nil
}

func (a *App) Register(ctx context.Context) error {
	email, password, err := a.credentials()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	userType, err := getSimpleText(a.reader, "Account type: customer or restaurant_owner (empty for customer)", a.out)
	if err != nil {
		return err
	}

	s, err := a.api.Register(ctx, email, password, userType)
	if err != nil {
		return err
	}

	a.setSession(s)
	fmt.Fprintln(a.out, "Registered.")
	return nil
}

func (a *App) Login(ctx context.Context) error {
	email, password, err := a.credentials()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	s, err := a.api.Login(ctx, email, password)
	if err != nil {
		return err
	}

	a.setSession(s)
	fmt.Fprintln(a.out, "Logged in.")
	return nil
}

// Guest starts a guest session using the configured device id, if any.
func (a *App) Guest(ctx context.Context) error {
	s, err := a.api.Guest(ctx, a.config.DeviceID)
	if err != nil {
		return err
	}

	a.setSession(s)
	fmt.Fprintf(a.out, "Guest session started (%s).\n", s.User.UserID)
	return nil
}

func (a *App) Me(ctx context.Context) error {
	u, err := a.api.Me(ctx)
	if err != nil {
		return err
	}
	a.user = u

	fmt.Fprintf(a.out, "id: %s\ntype: %s\n", u.UserID, u.UserType)
	if u.Email != "" {
		fmt.Fprintf(a.out, "email: %s\n", u.Email)
	}
	return nil
}

func (a *App) Refresh(ctx context.Context) error {
	s, err := a.api.Refresh(ctx)
	if err != nil {
		return err
	}

	a.setSession(s)
	fmt.Fprintf(a.out, "Tokens rotated, access valid until %s.\n", s.AccessTokenExpiresAt.Format("2006-01-02 15:04:05"))
	return nil
}

// Upload sends a product image or video to object storage via a presigned URL.
func (a *App) Upload(ctx context.Context, path string) error {
	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		return fmt.Errorf("cannot tell the media type of %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	upload, err := a.api.CreateUpload(ctx, contentType)
	if err != nil {
		return err
	}

	if err := a.api.UploadToPresignedURL(ctx, upload.URL, contentType, data); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Uploaded as %s.\n", upload.Key)
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	err := a.api.Logout(ctx)
	a.user = nil
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out.")
	return nil
}
