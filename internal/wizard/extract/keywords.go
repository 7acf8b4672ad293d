package extract

type keywordEntry struct {
	Canonical string
	Keywords  []string
}

// keywordTable maps canonical option labels to the synonyms and common typos
// users type for them. Entries are scanned in order and only considered when
// the canonical label is one of the question's options.
var keywordTable = []keywordEntry{
	{"corporate", []string{"corporate", "business", "company", "corp", "employee", "employees", "staff", "expense", "expenses", "corprate", "coporate"}},
	{"fleet", []string{"fleet", "fuel", "gas", "petrol", "diesel", "vehicle", "vehicles", "truck", "trucks", "flet"}},
	{"meal", []string{"meal", "meals", "food", "lunch", "dinner", "restaurant", "restaurants"}},
	{"travel", []string{"travel", "trip", "trips", "accommodation", "hotel", "hotels", "flight", "flights", "travle"}},
	{"gift", []string{"gift", "gifts", "voucher", "vouchers", "present", "presents", "reward", "rewards"}},
	{"transport", []string{"transport", "transportation", "commute", "commuting", "transit", "bus", "train", "metro"}},
	{"healthcare", []string{"healthcare", "health", "medical", "wellness"}},
	{"education", []string{"education", "school", "university", "tuition", "student", "students"}},

	{"prepaid", []string{"prepaid", "pre-paid", "prepay", "preload", "pre-load", "load", "loaded", "advance", "top up", "top-up"}},
	{"debit", []string{"debit", "bank", "account", "direct"}},
	{"credit", []string{"credit", "loan", "billing", "credit line"}},
	{"revolving", []string{"revolving", "revolve", "rolling"}},
	{"charge", []string{"charge", "charge card", "pay in full"}},
	{"hybrid", []string{"hybrid", "mixed", "combination", "mix"}},

	{"physical", []string{"physical", "plastic", "metal", "phisical", "physcial"}},
	{"virtual", []string{"virtual", "digital", "online", "virtaul"}},
	{"tokenized", []string{"tokenized", "tokenised", "token", "tokens", "mobile", "wallet", "wallets", "apple", "google", "pay", "phone", "nfc"}},

	{"Visa", []string{"visa", "viza", "vsa", "vias", "visa card"}},
	{"Mastercard", []string{"mastercard", "master card", "master", "mc", "mastercrd", "mastrcard", "mastercad"}},
	{"American Express", []string{"american express", "amex", "americanexpress"}},
	{"Discover", []string{"discover", "discovery"}},
	{"UnionPay", []string{"unionpay", "union pay", "union"}},
	{"JCB", []string{"jcb", "japan credit bureau"}},

	{"EUR", []string{"eur", "euro", "euros", "european"}},
	{"USD", []string{"usd", "dollar", "dollars", "american", "us dollar"}},
	{"GBP", []string{"gbp", "pound", "pounds", "sterling", "british"}},
	{"SEK", []string{"sek", "krona", "kronor", "swedish"}},
	{"NOK", []string{"nok", "norwegian"}},
	{"DKK", []string{"dkk", "danish"}},
	{"CHF", []string{"chf", "franc", "francs", "swiss"}},
	{"PLN", []string{"pln", "zloty", "polish"}},
	{"CZK", []string{"czk", "koruna", "czech"}},
	{"HUF", []string{"huf", "forint", "hungarian"}},
}

type currencyLocation struct {
	Currency string
	Places   []string
}

// currencyLocations maps where a company is based to the ISO-4217 code it
// most likely settles in. Matched as whole words, case-insensitively.
var currencyLocations = []currencyLocation{
	{"SEK", []string{"sweden", "swedish", "stockholm", "gothenburg"}},
	{"NOK", []string{"norway", "norwegian", "oslo"}},
	{"DKK", []string{"denmark", "danish", "copenhagen"}},
	{"GBP", []string{"united kingdom", "uk", "britain", "great britain", "england", "scotland", "wales", "london"}},
	{"CHF", []string{"switzerland", "swiss", "zurich", "geneva"}},
	{"PLN", []string{"poland", "polish", "warsaw"}},
	{"CZK", []string{"czech republic", "czechia", "czech", "prague"}},
	{"HUF", []string{"hungary", "hungarian", "budapest"}},
	{"USD", []string{"united states", "usa", "america", "new york"}},
	{"EUR", []string{
		"germany", "france", "spain", "italy", "netherlands", "finland", "ireland", "austria",
		"belgium", "portugal", "greece", "estonia", "latvia", "lithuania", "luxembourg",
		"eurozone", "europe", "berlin", "paris", "madrid", "amsterdam", "helsinki", "dublin",
	}},
}

// keywordsFor returns the keyword list for an option label, ignoring case.
func keywordsFor(option string) []string {
	norm := Normalize(option)
	for _, entry := range keywordTable {
		if Normalize(entry.Canonical) == norm {
			return entry.Keywords
		}
	}
	return nil
}
