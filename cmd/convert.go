package cmd

import (
	"strings"

	"trustschema/pkg/config"
	"trustschema/pkg/signing"
	"trustschema/pkg/validator"
)

// validatorConfigFrom copies the engine config's validator knobs into
// validator.Config — the two shapes are kept field-for-field identical by
// design (DESIGN.md), so this is a straight copy rather than a mapping.
func validatorConfigFrom(c *config.Config) validator.Config {
	return validator.Config{
		StepLimit:          c.Validator.StepLimit,
		MaxTrackedKeys:     c.Validator.MaxTrackedKeys,
		KeyTimestampTTL:    c.Validator.KeyTimestampTTL,
		GraceInterval:      c.Validator.GraceInterval,
		MaxConcurrentRoots: c.Validator.MaxConcurrentRoots,
	}
}

// signingConfigFrom translates the engine config's string algorithm name
// into signing.Config's KeyAlgorithm enum.
func signingConfigFrom(c *config.Config) signing.Config {
	algorithm := signing.RSA
	if strings.EqualFold(c.Signing.Algorithm, "ecdsa") {
		algorithm = signing.ECDSA
	}
	return signing.Config{
		Algorithm:      algorithm,
		MinRSABits:     c.Signing.MinRSABits,
		ECDSACurve:     c.Signing.ECDSACurve,
		ValidityPeriod: c.Signing.ValidityPeriod,
	}
}
