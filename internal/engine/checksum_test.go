package engine

import "testing"

func TestLuhnValid(t *testing.T) {
	valid := []string{
		"4111111111111111",
		"4532015112830366",
		"5500005555555559",
		"378282246310005",
	}
	for _, number := range valid {
		if !luhnValid(number) {
			t.Errorf("luhnValid(%q) = false, want true", number)
		}
	}

	invalid := []string{
		"4111111111111112",
		"1234567890123456",
		"0",
		"",
		"41111111a1111111",
	}
	for _, number := range invalid {
		if luhnValid(number) {
			t.Errorf("luhnValid(%q) = true, want false", number)
		}
	}
}

func TestIbanValid(t *testing.T) {
	t.Run("ValidNumbers", func(t *testing.T) {
		valid := []string{
			"GB82 WEST 1234 5698 7654 32",
			"GB82WEST12345698765432",
			"DE89 3704 0044 0532 0130 00",
			"FR14 2004 1010 0505 0001 3M02 606",
			"NL91 ABNA 0417 1643 00",
		}
		for _, iban := range valid {
			if !ibanValid(iban) {
				t.Errorf("ibanValid(%q) = false, want true", iban)
			}
		}
	})

	t.Run("BadCheckDigits", func(t *testing.T) {
		if ibanValid("GB82 WEST 1234 5698 7654 33") {
			t.Error("IBAN with wrong check digits accepted")
		}
	})

	t.Run("WrongLengthForCountry", func(t *testing.T) {
		// Valid German body truncated by one character.
		if ibanValid("DE89 3704 0044 0532 0130 0") {
			t.Error("IBAN with wrong country length accepted")
		}
	})

	t.Run("UnknownCountry", func(t *testing.T) {
		if ibanValid("XX82 WEST 1234 5698 7654 32") {
			t.Error("IBAN with unregistered country code accepted")
		}
	})
}

func TestNhsValid(t *testing.T) {
	// 943 476 5919 is the standard NHS test number for the mod-11 check.
	valid := []string{"9434765919", "943 476 5919", "943-476-5919"}
	for _, number := range valid {
		if !nhsValid(number) {
			t.Errorf("nhsValid(%q) = false, want true", number)
		}
	}

	invalid := []string{
		"9434765918", // wrong check digit
		"943476591",  // nine digits
		"94347659190",
	}
	for _, number := range invalid {
		if nhsValid(number) {
			t.Errorf("nhsValid(%q) = true, want false", number)
		}
	}
}

func TestNiValid(t *testing.T) {
	valid := []string{"AB123456C", "AB 12 34 56 C", "JG103759A"}
	for _, ni := range valid {
		if !niValid(ni) {
			t.Errorf("niValid(%q) = false, want true", ni)
		}
	}

	invalid := []string{
		"DA123456C", // D never appears in the prefix
		"FA123456C",
		"AO123456C", // O never appears second
		"BG123456C", // reserved prefix
		"GB123456C",
		"NT123456C",
		"ZZ123456C",
		"AB12345C", // too short
	}
	for _, ni := range invalid {
		if niValid(ni) {
			t.Errorf("niValid(%q) = true, want false", ni)
		}
	}
}

func TestIpv4Valid(t *testing.T) {
	valid := []string{"192.168.1.1", "8.8.8.8", "255.255.255.255", "0.0.0.0"}
	for _, ip := range valid {
		if !ipv4Valid(ip) {
			t.Errorf("ipv4Valid(%q) = false, want true", ip)
		}
	}

	invalid := []string{
		"256.1.1.1",
		"999.168.1.1",
		"192.168.01.1", // leading zero octet
		"1.2.3",
		"1.2.3.4.5",
	}
	for _, ip := range invalid {
		if ipv4Valid(ip) {
			t.Errorf("ipv4Valid(%q) = true, want false", ip)
		}
	}
}

func TestPhoneValid(t *testing.T) {
	valid := []string{"+44 20 7946 0958", "020 7946 0958", "07911 123456", "+1 415 555 2671"}
	for _, phone := range valid {
		if !phoneValid(phone) {
			t.Errorf("phoneValid(%q) = false, want true", phone)
		}
	}

	invalid := []string{
		"12345 6789",        // nine digits but no prefix marker
		"4111 1111 1111",    // card fragment, no leading zero or plus
		"+44 20",            // too few digits
		"+441234567890123456", // too many digits
	}
	for _, phone := range invalid {
		if phoneValid(phone) {
			t.Errorf("phoneValid(%q) = true, want false", phone)
		}
	}
}

func TestDobValid(t *testing.T) {
	valid := []string{"15/03/1990", "1/1/2001", "15-03-1990", "1990-03-15"}
	for _, dob := range valid {
		if !dobValid(dob) {
			t.Errorf("dobValid(%q) = false, want true", dob)
		}
	}

	invalid := []string{"32/01/1990", "15/13/1990", "1990-13-05", "1990-01-32", "0/0/1990"}
	for _, dob := range invalid {
		if dobValid(dob) {
			t.Errorf("dobValid(%q) = true, want false", dob)
		}
	}
}
