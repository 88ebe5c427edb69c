package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/socialhub/internal/common"
	"github.com/dmitrijs2005/socialhub/internal/session"
)

// getSimpleText and getPassword are indirections swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

func (a *App) credentials() (string, string, error) {
	email, err := getSimpleText(a.reader, "Email", a.out)
	if err != nil {
		return "", "", err
	}
	pw, err := getPassword(a.out)
	if err != nil {
		return "", "", err
	}
	defer common.WipeByteArray(pw)
	return email, string(pw), nil
}

// SignUp prompts for credentials and the profile fields, then creates the
// account.
func (a *App) SignUp(ctx context.Context, _ []string) error {
	email, password, err := a.credentials()
	if err != nil {
		return err
	}
	fullName, err := getSimpleText(a.reader, "Full name", a.out)
	if err != nil {
		return err
	}
	company, err := getSimpleText(a.reader, "Company", a.out)
	if err != nil {
		return err
	}

	res, err := a.session.SignUp(ctx, email, password, session.ProfileFields{FullName: fullName, Company: company})
	if err != nil {
		return err
	}
	if res.Session == nil {
		fmt.Fprintln(a.out, "Check your email to confirm the account")
		return nil
	}
	fmt.Fprintln(a.out, "Signed up as", res.User.Email)
	return nil
}

func (a *App) Login(ctx context.Context, _ []string) error {
	email, password, err := a.credentials()
	if err != nil {
		return err
	}
	if _, err := a.session.SignIn(ctx, email, password); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Login successful")
	return nil
}

// Logout drops the realtime channel before the session.
func (a *App) Logout(ctx context.Context, _ []string) error {
	a.watcher.Unmount()
	if err := a.session.SignOut(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *App) Reset(ctx context.Context, args []string) error {
	var email string
	if len(args) > 0 {
		email = args[0]
	} else {
		var err error
		if email, err = getSimpleText(a.reader, "Email", a.out); err != nil {
			return err
		}
	}
	if err := a.session.ResetPassword(ctx, email); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "If the address is registered, a recovery email is on its way")
	return nil
}

func (a *App) WhoAmI(context.Context, []string) error {
	st := a.session.State()
	if !st.Authenticated() {
		fmt.Fprintln(a.out, st.Status)
		return nil
	}
	fmt.Fprintf(a.out, "%s %s (%s)\n", st.Status, st.User.Email, st.User.ID)
	return nil
}

// Profile prints the profile record, waiting for a load in flight.
func (a *App) Profile(ctx context.Context, args []string) error {
	if len(args) > 0 && args[0] == "reload" {
		a.session.RefreshProfile(ctx)
	}
	a.session.Wait()

	st := a.session.State()
	if st.Profile == nil {
		fmt.Fprintln(a.out, "No profile")
		return nil
	}
	a.printJSON(st.Profile)
	return nil
}
