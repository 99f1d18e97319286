package epubtext

import "encoding/xml"

// encryptionFilePath is the standard path for the encryption descriptor.
const encryptionFilePath = "META-INF/encryption.xml"

// sinfFilePath is the path that indicates Apple FairPlay protection.
const sinfFilePath = "META-INF/sinf.xml"

// Font obfuscation algorithm URIs. Obfuscated fonts never affect text
// extraction.
var fontObfuscationAlgorithms = map[string]bool{
	"http://www.idpf.org/2008/embedding": true, // IDPF font obfuscation
	"http://ns.adobe.com/pdf/enc#RC":     true, // Adobe font obfuscation
}

// XML structures for parsing encryption.xml.

type xmlEncryption struct {
	XMLName       xml.Name           `xml:"encryption"`
	EncryptedData []xmlEncryptedData `xml:"EncryptedData"`
}

type xmlEncryptedData struct {
	EncryptionMethod xmlEncryptionMethod `xml:"EncryptionMethod"`
}

type xmlEncryptionMethod struct {
	Algorithm string `xml:"Algorithm,attr"`
}

// detectEncryption inspects the archive's encryption descriptors and
// reports protected content as warnings, never as errors: conversion
// proceeds best-effort, and encrypted chapters simply fail to yield text.
func detectEncryption(a *Archive) []string {
	if a.Has(sinfFilePath) {
		return []string{"archive carries an Apple FairPlay descriptor; content is likely unreadable"}
	}

	data, err := a.Read(encryptionFilePath)
	if err != nil {
		return nil
	}
	data = stripBOM(data)

	var enc xmlEncryption
	if err := xml.Unmarshal(data, &enc); err != nil {
		return []string{"cannot parse " + encryptionFilePath + "; content may be encrypted"}
	}

	var fontObfuscation bool
	for _, ed := range enc.EncryptedData {
		if fontObfuscationAlgorithms[ed.EncryptionMethod.Algorithm] {
			fontObfuscation = true
			continue
		}
		// Any entry that is not font obfuscation protects real content.
		return []string{"archive declares encrypted resources; extracted text may be incomplete"}
	}
	if fontObfuscation {
		return []string{"font obfuscation detected; text content is unaffected"}
	}
	return nil
}
