package cluster

import (
	"fmt"

	"github.com/Masterminds/semver"
)

// versionCompatible validates that the cluster was created by a cli
// release with the same major and minor version as the running one,
// patch releases are always compatible
func versionCompatible(running, created string) error {
	rv, err := semver.NewVersion(running)
	if err != nil {
		// development builds do not gate updates
		return nil
	}

	sv, err := semver.NewConstraint(fmt.Sprintf("~%d.%d", rv.Major(), rv.Minor()))
	if err != nil {
		return err
	}

	cv, err := semver.NewVersion(created)
	if err != nil {
		return fmt.Errorf("unable to read the version the cluster was created with: %s", err)
	}

	if !sv.Check(cv) {
		return fmt.Errorf("the cluster was created with gantry %s which is not compatible with %s, pass --force-update to update anyway", created, running)
	}

	return nil
}
