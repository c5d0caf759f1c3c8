//go:build production

package config

const DisableDevelopmentFallbackEnv = "PROMPTVAULT_NO_DEV_FALLBACK"

func developmentCredentials() (RemoteCredentials, bool) {
	return RemoteCredentials{}, false
}
