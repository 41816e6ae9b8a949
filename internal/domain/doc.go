// Package domain models power outage reports and the statistics derived
// from them. Everything here is pure: functions take the collection and,
// where time matters, an explicit now.
//
// # Records
//
// An Event is written by one of three capture forms (see FormKind):
//
//	location   where the outage happened, with optional map coordinates
//	duration   how long it lasted, for a location already on record
//	damage     what was damaged, for a location already on record
//
// Location format:
//
//	"<street>, <district>, <city>, <region>"  →  e.g. "Rua A, Centro, Recife, PE"
//	The second segment is the area used by MostAffectedArea. Locations with
//	fewer segments are kept but never counted as an area.
//
// Severity is one of low, medium or high. Drafts without one get medium.
//
// # Durations
//
// User input is parsed strictly by ParseDuration and stored only in the
// canonical form produced by FormatDuration:
//
//	input          minutes  stored
//	"2h30"         150      "2h 30m"
//	"2h"           120      "2h"
//	"30m", "30min" 30       "30m"
//	"90 minutos"   90       "1h 30m"
//	"1.5h"         90       "1h 30m"
//	"120"          120      "2h"
//
// Valid durations are 1 to 1440 minutes. Reading a stored value goes through
// DurationMinutes, which is lenient and never fails.
//
// # Damage categories
//
// ClassifyDamage applies an ordered keyword table to the lowercased damage
// text; the first matching row wins:
//
//	residential     residência, casa, apartamento, domicílio
//	commercial      comércio, empresa, loja, estabelecimento
//	infrastructure  poste, fiação, transformador, rede elétrica
//	personal        eletrônico, geladeira, computador, alimento
//	general         anything else
//
// # Statistics
//
// Windows (7d, 30d, 90d, all) keep events strictly after now minus the
// window. Trends compare the last seven days (now-7d, ...) against the
// seven before (now-14d, now-7d]: counts need a 20% change, average
// durations 10%. Monthly growth compares the calendar month of now with the
// calendar month of now-30d.
package domain
