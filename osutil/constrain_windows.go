package osutil

import "errors"

func Constrain(groupName, chrootDir string) error {
	if len(groupName) > 0 || len(chrootDir) > 0 {
		return errors.New("osutil.Constrain: not supported on windows")
	}
	return nil
}

func ConstraintReport() string {
	return "unconstrained"
}
