// Package ontology defines the enumerated domain categories referenced by
// typed condition checks: who acts, what instrument is involved, what
// activity is performed, and where.
package ontology

// ActorType classifies the entity a rule speaks about.
type ActorType string

const (
	ActorIssuer            ActorType = "issuer"
	ActorCASP              ActorType = "casp" // crypto-asset service provider
	ActorCreditInstitution ActorType = "credit_institution"
	ActorEMI               ActorType = "emi" // e-money institution
	ActorInvestmentFirm    ActorType = "investment_firm"
	ActorOfferor           ActorType = "offeror"
	ActorCustodian         ActorType = "custodian"
	ActorRetailHolder      ActorType = "retail_holder"
)

// InstrumentType classifies the regulated instrument.
type InstrumentType string

const (
	InstrumentART          InstrumentType = "art" // asset-referenced token
	InstrumentEMT          InstrumentType = "emt" // e-money token
	InstrumentStablecoin   InstrumentType = "stablecoin"
	InstrumentUtilityToken InstrumentType = "utility_token"
	InstrumentSecurity     InstrumentType = "security_token"
	InstrumentNFT          InstrumentType = "nft"
	InstrumentRWA          InstrumentType = "rwa" // tokenized real-world asset
)

// ActivityType classifies the regulated activity.
type ActivityType string

const (
	ActivityPublicOffer        ActivityType = "public_offer"
	ActivityAdmissionToTrading ActivityType = "admission_to_trading"
	ActivityCustody            ActivityType = "custody"
	ActivityExchange           ActivityType = "exchange"
	ActivityTokenization       ActivityType = "tokenization"
	ActivityLending            ActivityType = "lending"
	ActivityStaking            ActivityType = "staking"
	ActivityMarketing          ActivityType = "marketing"
)

// Jurisdiction identifies a regulatory regime by short code.
type Jurisdiction string

const (
	JurisdictionEU Jurisdiction = "EU"
	JurisdictionUK Jurisdiction = "UK"
	JurisdictionUS Jurisdiction = "US"
	JurisdictionCH Jurisdiction = "CH"
	JurisdictionSG Jurisdiction = "SG"
)

var actorTypes = map[ActorType]bool{
	ActorIssuer: true, ActorCASP: true, ActorCreditInstitution: true,
	ActorEMI: true, ActorInvestmentFirm: true, ActorOfferor: true,
	ActorCustodian: true, ActorRetailHolder: true,
}

var instrumentTypes = map[InstrumentType]bool{
	InstrumentART: true, InstrumentEMT: true, InstrumentStablecoin: true,
	InstrumentUtilityToken: true, InstrumentSecurity: true,
	InstrumentNFT: true, InstrumentRWA: true,
}

var activityTypes = map[ActivityType]bool{
	ActivityPublicOffer: true, ActivityAdmissionToTrading: true,
	ActivityCustody: true, ActivityExchange: true, ActivityTokenization: true,
	ActivityLending: true, ActivityStaking: true, ActivityMarketing: true,
}

var jurisdictions = map[Jurisdiction]bool{
	JurisdictionEU: true, JurisdictionUK: true, JurisdictionUS: true,
	JurisdictionCH: true, JurisdictionSG: true,
}

// Valid reports whether the value is a known actor type.
func (a ActorType) Valid() bool { return actorTypes[a] }

// Valid reports whether the value is a known instrument type.
func (i InstrumentType) Valid() bool { return instrumentTypes[i] }

// Valid reports whether the value is a known activity type.
func (a ActivityType) Valid() bool { return activityTypes[a] }

// Valid reports whether the value is a known jurisdiction code.
func (j Jurisdiction) Valid() bool { return jurisdictions[j] }
