package config

import "go.uber.org/fx"

// Module provides *Config, loaded from the supplied EmbeddedConfig and the
// optional "envFilePath", together with the environment expander.
var Module = fx.Options(
	fx.Provide(NewConfigProvider),
	fx.Provide(fx.Annotate(
		NewOsEnvironmentExpander,
		fx.As(new(EnvironmentExpander)),
	)),
)
