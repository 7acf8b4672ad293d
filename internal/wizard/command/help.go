package command

const defaultFieldHelp = "Just answer naturally! I'll understand common phrases and numbers."

var fieldHelp = map[string]string{
	"name": "Give your program a name of at least 3 characters, for example \"Acme Travel Cards\".",
	"type": "Program type determines how cards will be used:\n" +
		"• Corporate: business expenses\n" +
		"• Fleet: fuel and vehicle costs\n" +
		"• Meal: food and dining\n" +
		"• Travel: trips and accommodation\n" +
		"• Gift: vouchers and rewards\n" +
		"• Transport: commuting and transit\n" +
		"• Healthcare: medical and wellness spending\n" +
		"• Education: tuition and campus costs",
	"fundingModel": "Funding model defines how money flows:\n" +
		"• Prepaid: funds are loaded in advance\n" +
		"• Debit: spending draws from a linked bank account\n" +
		"• Credit: spend now and settle on a billing cycle\n" +
		"• Charge: the balance is paid in full every cycle\n" +
		"• Hybrid: a mix of prepaid and credit funding",
	"formFactor": "Form factors are the ways cardholders can pay:\n" +
		"• Physical: a plastic or metal card\n" +
		"• Virtual: card details for online purchases\n" +
		"• Tokenized: Apple Pay, Google Pay and other mobile wallets\n" +
		"You can pick more than one, or say \"all\".",
	"scheme":         "The card scheme is the payment network. Visa and Mastercard are accepted almost everywhere.",
	"currency":       "This is the billing currency. Name a currency such as EUR, USD, GBP or SEK, or just tell me where you're based.",
	"estimatedCards": "Roughly how many cards you expect to issue. A number like 500, \"two hundred\" or even \"50*10\" works.",
	"dailyLimit":     "The most a single card can spend in one day.",
	"monthlyLimit":   "The most a single card can spend in one month.",
}

var fieldAliases = map[string]string{
	"program_name":    "name",
	"programName":     "name",
	"program_type":    "type",
	"programType":     "type",
	"funding_model":   "fundingModel",
	"form_factor":     "formFactor",
	"form_factors":    "formFactor",
	"formFactors":     "formFactor",
	"card_scheme":     "scheme",
	"cardScheme":      "scheme",
	"estimated_cards": "estimatedCards",
	"daily_limit":     "dailyLimit",
	"monthly_limit":   "monthlyLimit",
}

// FieldHelp explains what a wizard field is asking for.
func FieldHelp(field string) string {
	if alias, ok := fieldAliases[field]; ok {
		field = alias
	}
	if text, ok := fieldHelp[field]; ok {
		return text
	}
	return defaultFieldHelp
}
