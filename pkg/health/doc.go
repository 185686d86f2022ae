// Package health tracks consecutive failures of named components and
// alerts an operator when a component stays broken.
//
// Webhook processing is the primary client: a provider keeps retrying
// deliveries while the database is down, so each failed delivery bumps
// the component's failure count. Crossing the threshold sends one alert,
// then the cooldown suppresses repeats until the component either
// recovers or stays broken past another cooldown window.
package health
