package commands

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// readPassword reads a password without echo. Tests replace it.
var readPassword = func() (string, error) {
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(Out)
	return string(b), err
}

func promptPassword() (string, error) {
	fmt.Fprint(Out, "Password: ")
	return readPassword()
}

// credentialArgs returns email and password from args, prompting for the
// password when it is not given.
func credentialArgs(args []string) (string, string, error) {
	switch len(args) {
	case 1:
		pw, err := promptPassword()
		if err != nil {
			return "", "", err
		}
		return args[0], pw, nil
	case 2:
		return args[0], args[1], nil
	}
	return "", "", ErrUsage
}
